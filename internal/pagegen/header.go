package pagegen

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Generator is written into every header so our files can be told apart from
// hand-written ones in the same directory.
const Generator = "citypages"

const (
	headerOpen  = "/* ---"
	headerClose = "--- */"
)

// Header is the YAML block at the top of a generated file.
type Header struct {
	Generator string `yaml:"generator"`
	Category  string `yaml:"category"`
	Name      string `yaml:"name,omitempty"`
	Slug      string `yaml:"slug,omitempty"`
	Component string `yaml:"component,omitempty"`
}

// Encode renders the header as a block comment.
func (h Header) Encode() (string, error) {
	body, err := yaml.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("pagegen: encode header: %w", err)
	}
	return headerOpen + "\n" + string(body) + headerClose, nil
}

// ParseHeader extracts the header from generated content. Content without a
// header, or with one that is not ours, yields ok == false.
func ParseHeader(data []byte) (h Header, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r\t ")
	if !bytes.HasPrefix(trimmed, []byte(headerOpen)) {
		return Header{}, false
	}
	rest := trimmed[len(headerOpen):]
	idx := bytes.Index(rest, []byte("\n"+headerClose))
	if idx < 0 {
		return Header{}, false
	}
	if err := yaml.Unmarshal(rest[:idx], &h); err != nil {
		return Header{}, false
	}
	if h.Generator != Generator {
		return Header{}, false
	}
	return h, true
}
