package a2a

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

/*
PartKind is the discriminator for a Part union. It must be read before the
rest of the payload is interpreted — Text, File and Data are mutually
exclusive per kind.
*/
type PartKind string

const (
	PartKindText PartKind = "text"
	PartKindFile PartKind = "file"
	PartKindData PartKind = "data"
)

// FileContent carries either inline base64 bytes or a URI reference, never
// both. Name and MimeType describe the payload when known.
type FileContent struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    string  `json:"bytes,omitempty"`
	URI      string  `json:"uri,omitempty"`
}

/*
Part is a discriminated union over text, file and data content. Kind selects
which of Text/File/Data is populated; the others are left zero.
*/
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitempty"`
	File     *FileContent   `json:"file,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

func NewFilePart(name, mimeType string, data []byte) Part {
	return Part{
		Kind: PartKindFile,
		File: &FileContent{
			Name:     &name,
			MimeType: &mimeType,
			Bytes:    base64.StdEncoding.EncodeToString(data),
		},
	}
}

func NewFileURIPart(name, mimeType, uri string) Part {
	return Part{
		Kind: PartKindFile,
		File: &FileContent{
			Name:     &name,
			MimeType: &mimeType,
			URI:      uri,
		},
	}
}

func NewDataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Validate checks that the field matching Kind is populated.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		if p.Text == "" {
			return fmt.Errorf("text part must carry non-empty text")
		}
	case PartKindFile:
		if p.File == nil {
			return fmt.Errorf("file part missing file content")
		}
		if p.File.Bytes == "" && p.File.URI == "" {
			return fmt.Errorf("file part must carry bytes or uri")
		}
	case PartKindData:
		if p.Data == nil {
			return fmt.Errorf("data part missing data")
		}
	default:
		return fmt.Errorf("unknown part kind %q", p.Kind)
	}
	return nil
}

// partAlias avoids infinite recursion through UnmarshalJSON.
type partAlias Part

func (p *Part) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind PartKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Kind == "" {
		return fmt.Errorf("part missing discriminator %q", "kind")
	}
	var alias partAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = Part(alias)
	return nil
}
