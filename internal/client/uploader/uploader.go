package uploader

import (
	"context"
	"docingest/internal/client/humanize"
	"docingest/internal/dto"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const pkg = "uploader/"

const (
	DefaultMaxSize = 10 << 20
	recentShown    = 3
)

var DefaultAccepted = []string{".pdf", ".docx", ".txt"}

type Transport interface {
	Upload(ctx context.Context, userID string, name string, content io.Reader) (*dto.DocumentResponse, error)
}

// File is a candidate upload. Open is called only once the file's turn comes.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type Rejection struct {
	Name    string
	Message string
}

type Options struct {
	MaxSize  int64
	Accepted []string
	// OnProgress receives 0 when a file starts and 100 when it is stored.
	OnProgress func(name string, percent int)
}

type Result struct {
	Uploaded []dto.DocumentResponse
	Rejected []Rejection
	// Failed names the file that stopped the queue, if any.
	Failed string
	Err    error
}

type Uploader struct {
	log       *slog.Logger
	transport Transport
	opts      Options
	recent    []string
}

func New(log *slog.Logger, transport Transport, opts Options) *Uploader {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if len(opts.Accepted) == 0 {
		opts.Accepted = DefaultAccepted
	}
	if opts.OnProgress == nil {
		opts.OnProgress = func(string, int) {}
	}

	return &Uploader{
		log:       log,
		transport: transport,
		opts:      opts,
	}
}

// Validate splits files into those worth sending and local rejections.
func (u *Uploader) Validate(files []File) ([]File, []Rejection) {
	accepted := make([]File, 0, len(files))
	var rejected []Rejection

	for _, f := range files {
		switch {
		case !u.isAccepted(f.Name):
			rejected = append(rejected, Rejection{Name: f.Name, Message: fmt.Sprintf("%s has an unsupported file type", f.Name)})
		case f.Size > u.opts.MaxSize:
			rejected = append(rejected, Rejection{
				Name:    f.Name,
				Message: fmt.Sprintf("%s is too large (max %s)", f.Name, humanize.FileSize(u.opts.MaxSize)),
			})
		default:
			accepted = append(accepted, f)
		}
	}

	return accepted, rejected
}

// Upload sends accepted files one at a time as userID and stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, userID string, files []File) Result {
	op := pkg + "Upload"

	log := u.log.With(slog.String("op", op))

	accepted, rejected := u.Validate(files)

	res := Result{Rejected: rejected}

	for _, f := range accepted {
		u.opts.OnProgress(f.Name, 0)

		doc, err := u.uploadOne(ctx, userID, f)
		if err != nil {
			log.Warn("upload failed, stopping queue", slog.String("name", f.Name), slog.String("error", err.Error()))
			res.Failed = f.Name
			res.Err = fmt.Errorf("%s: %s: %w", op, f.Name, err)
			return res
		}

		u.opts.OnProgress(f.Name, 100)
		u.recent = append(u.recent, f.Name)
		res.Uploaded = append(res.Uploaded, *doc)
	}

	return res
}

func (u *Uploader) uploadOne(ctx context.Context, userID string, f File) (*dto.DocumentResponse, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return u.transport.Upload(ctx, userID, f.Name, rc)
}

// Recent lists the last few uploaded names, newest last.
func (u *Uploader) Recent() []string {
	if len(u.recent) <= recentShown {
		return append([]string(nil), u.recent...)
	}
	return append([]string(nil), u.recent[len(u.recent)-recentShown:]...)
}

func (u *Uploader) isAccepted(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range u.opts.Accepted {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
