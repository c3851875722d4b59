// Package storage defines the object layout shared by the artifact store
// backends. Every artifact lives at a deterministic path derived from its
// kind and document identity, so backends never need a lookup table.
package storage

import (
	"fmt"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// ObjectPath returns the storage-relative path for one artifact, e.g.
// "pdfs/loi/loi-2025-8.pdf" or "ocr/decret/decret-2024-101.txt".
func ObjectPath(kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) (string, error) {
	dir, ext, err := kindLayout(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s%s", dir, t, documentID, ext), nil
}

func kindLayout(kind lawdoc.ArtifactKind) (dir, ext string, err error) {
	switch kind {
	case lawdoc.ArtifactPDF:
		return "pdfs", ".pdf", nil
	case lawdoc.ArtifactOCR:
		return "ocr", ".txt", nil
	case lawdoc.ArtifactArticles:
		return "articles", ".json", nil
	default:
		return "", "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}
