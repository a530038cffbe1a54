package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/octolist/octopus"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var outputFormat string

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputText, "output format (text, json, yaml)")
}

type contactView struct {
	ID        string         `json:"id" yaml:"id"`
	Email     string         `json:"email_address" yaml:"email_address"`
	Status    string         `json:"status" yaml:"status"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Fields    map[string]any `json:"fields" yaml:"fields"`
}

func newContactView(c *octopus.Contact) contactView {
	return contactView{
		ID:        c.ID(),
		Email:     c.EmailAddress().String(),
		Status:    c.Status().String(),
		CreatedAt: c.CreatedAt(),
		Fields:    c.Fields().Map(),
	}
}

type listFieldView struct {
	Tag      string `json:"tag" yaml:"tag"`
	Type     string `json:"type" yaml:"type"`
	Label    string `json:"label" yaml:"label"`
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

type listView struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	DoubleOptIn bool             `json:"double_opt_in" yaml:"double_opt_in"`
	CreatedAt   *time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Counts      map[string]int64 `json:"counts" yaml:"counts"`
	Fields      []listFieldView  `json:"fields" yaml:"fields"`
}

func newListView(l *octopus.MailingList) listView {
	counts := l.Counts()
	v := listView{
		ID:          l.ID().String(),
		Name:        l.Name(),
		DoubleOptIn: l.DoubleOptIn(),
		Counts: map[string]int64{
			"pending":      counts.Pending,
			"subscribed":   counts.Subscribed,
			"unsubscribed": counts.Unsubscribed,
		},
		Fields: []listFieldView{},
	}
	if created := l.CreatedAt(); !created.IsZero() {
		v.CreatedAt = &created
	}
	for _, f := range l.Fields() {
		v.Fields = append(v.Fields, listFieldView(f))
	}
	return v
}

// encode writes v in a structured format. It reports false for text output
// so the caller can fall back to its own layout.
func encode(out io.Writer, format string, v any) (bool, error) {
	switch format {
	case "", outputText:
		return false, nil
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, fmt.Errorf("unknown output format %q: use text, json or yaml", format)
	}
}
