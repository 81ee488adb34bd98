package output

import (
	"bytes"
	"encoding/json"

	"github.com/dustin/go-humanize"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Operation  Operation      `json:"operation" yaml:"operation"`
	Target     string         `json:"target" yaml:"target"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	LogCreated bool           `json:"log_created" yaml:"log_created"`
	Moves      []documentMove `json:"moves" yaml:"moves"`
	Summary    documentStats  `json:"summary" yaml:"summary"`
}

type documentMove struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
}

type documentStats struct {
	Files       int      `json:"files" yaml:"files"`
	Skipped     int      `json:"skipped" yaml:"skipped"`
	Bytes       int64    `json:"bytes" yaml:"bytes"`
	BytesHuman  string   `json:"bytes_human" yaml:"bytes_human"`
	Directories []string `json:"directories" yaml:"directories"`
	Elapsed     string   `json:"elapsed" yaml:"elapsed"`
}

// buildDocument converts a report to its serialized form. Machine-readable
// output always carries every move.
func buildDocument(r *Report) document {
	res := r.Result
	renamed := r.renamed()

	moves := make([]documentMove, len(renamed))
	for i, m := range renamed {
		moves[i] = documentMove{
			From:      m.From,
			To:        m.To,
			Size:      m.Size,
			SizeHuman: humanize.IBytes(uint64(m.Size)),
		}
	}

	dirs := res.Directories
	if dirs == nil {
		dirs = []string{}
	}

	return document{
		Operation:  r.Operation,
		Target:     res.Root,
		DryRun:     res.DryRun,
		LogCreated: res.LogCreated,
		Moves:      moves,
		Summary: documentStats{
			Files:       len(renamed),
			Skipped:     res.Skipped,
			Bytes:       res.MovedBytes(),
			BytesHuman:  humanize.IBytes(uint64(res.MovedBytes())),
			Directories: dirs,
			Elapsed:     res.Elapsed.String(),
		},
	}
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
