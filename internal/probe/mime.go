// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probe

import (
	"github.com/gabriel-vasile/mimetype"
)

// SniffMIME detects a file's MIME type from its content (magic bytes), not
// its extension. A client-supplied content type can lie; this cannot.
func (p *Prober) SniffMIME(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}
