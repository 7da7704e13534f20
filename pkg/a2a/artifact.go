package a2a

import "github.com/google/uuid"

/*
Artifact is a named output produced by a task, composed of ordered Parts.
Artifacts are append-only within a version: TaskManager.AddArtifact with
append=true concatenates Parts onto the existing artifact sharing ArtifactID;
otherwise a new artifact is appended to the task.
*/
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Parts       []Part         `json:"parts"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewArtifact(parts ...Part) Artifact {
	return Artifact{
		ArtifactID: uuid.New().String(),
		Parts:      parts,
	}
}

func NewFileArtifact(name, mimeType, base64Data string) Artifact {
	return Artifact{
		ArtifactID: uuid.New().String(),
		Name:       &name,
		Parts: []Part{{
			Kind: PartKindFile,
			File: &FileContent{MimeType: &mimeType, Bytes: base64Data},
		}},
	}
}
