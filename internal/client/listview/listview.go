package listview

import (
	"context"
	"docingest/internal/client/humanize"
	"docingest/internal/models"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/disiqueira/gotree/v3"
	"golang.org/x/term"
)

const (
	LoadingText = "Loading documents..."
	EmptyText   = "No documents yet. Upload a file to get started."

	clearScreen = "\x1b[H\x1b[2J"
)

var badges = map[models.Status]string{
	models.StatusReady:      "Ready",
	models.StatusProcessing: "Processing",
	models.StatusUploading:  "Uploading",
	models.StatusError:      "Error",
}

// Source yields document snapshots until closed.
type Source interface {
	Next() (models.Snapshot, error)
	Close() error
}

type View struct {
	out   io.Writer
	clear bool
}

// New writes to out and clears between renders only when out is a terminal.
func New(out io.Writer) *View {
	v := &View{out: out}

	if f, ok := out.(*os.File); ok {
		v.clear = term.IsTerminal(int(f.Fd()))
	}

	return v
}

// Run renders every snapshot from src until ctx ends or the stream fails.
// src is closed on return.
func (v *View) Run(ctx context.Context, src Source) error {
	defer src.Close()

	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	v.draw(LoadingText + "\n")

	for {
		snap, err := src.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			v.draw(ErrorText(err))
			return err
		}

		if snap.Err != nil {
			v.draw(ErrorText(snap.Err))
			return snap.Err
		}

		v.draw(Render(snap.Documents))
	}
}

func (v *View) draw(s string) {
	if v.clear {
		fmt.Fprint(v.out, clearScreen)
	}
	fmt.Fprint(v.out, s)
}

func ErrorText(err error) string {
	return "Error loading documents: " + err.Error() + "\n"
}

// Stats is the one-line summary shown above the list. Last active is the
// newest upload time.
func Stats(docs []*models.Document) string {
	var total int64
	var last int64

	for _, doc := range docs {
		total += doc.Size
		if doc.UploadedAt > last {
			last = doc.UploadedAt
		}
	}

	lastActive := "Never"
	if len(docs) > 0 {
		lastActive = humanize.Date(last)
	}

	return fmt.Sprintf("Documents: %d  |  Storage Used: %s  |  Last Active: %s\n",
		len(docs), humanize.FileSize(total), lastActive)
}

// Render draws the stats header and one card per document, newest first as given.
func Render(docs []*models.Document) string {
	header := Stats(docs) + "\n"

	if len(docs) == 0 {
		return header + EmptyText + "\n"
	}

	root := gotree.New(fmt.Sprintf("Documents (%d)", len(docs)))

	for _, doc := range docs {
		card := root.Add(fmt.Sprintf("%s [%s]", doc.Name, badge(doc.Status)))
		card.Add(humanize.FileSize(doc.Size) + " • " + humanize.Date(doc.UploadedAt))
		card.Add(chunks(doc.ChunkCount))
		if doc.Status == models.StatusReady {
			card.Add("Ready to chat")
		}
	}

	return header + root.Print()
}

func badge(s models.Status) string {
	if b, ok := badges[s]; ok {
		return b
	}
	return string(s)
}

func chunks(n *int) string {
	if n == nil || *n == 0 {
		return "No chunks yet"
	}
	return strconv.Itoa(*n) + " chunks"
}
