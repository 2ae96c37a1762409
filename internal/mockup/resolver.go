package mockup

import (
	"strconv"

	"github.com/google/uuid"
)

// Metadata is the resolved classification for one image. SortIndex already
// has the caller's fallback applied when nothing explicit was found;
// ExplicitSort records whether a manifest entry or a numeric file-name token
// supplied it.
type Metadata struct {
	VariantID    *uuid.UUID
	Placement    string
	SortIndex    int
	ExplicitSort bool
}

// Resolve classifies one archive entry. A manifest entry, when present,
// wins outright: the file name is not consulted for fields the manifest
// left empty. Otherwise the base file name is tokenized and scanned for a
// placement token, a color token, a size token and a bare numeric sort
// index, each independently.
func Resolve(path string, manifest *Manifest, variants []VariantRef, fallbackSort int) Metadata {
	if entry, ok := manifest.Lookup(path); ok {
		meta := Metadata{
			VariantID: entry.VariantID,
			Placement: entry.Placement,
			SortIndex: fallbackSort,
		}
		if entry.SortIndex != nil {
			meta.SortIndex = *entry.SortIndex
			meta.ExplicitSort = true
		}
		return meta
	}

	return inferFromFileName(path, variants, fallbackSort)
}

func inferFromFileName(path string, variants []VariantRef, fallbackSort int) Metadata {
	meta := Metadata{SortIndex: fallbackSort}

	base := stripExtension(BaseName(path))
	tokens := tokenize(base)

	colorSet := make(map[string]bool, len(variants))
	for _, v := range variants {
		if c := normalizeToken(v.Color); c != "" {
			colorSet[c] = true
		}
	}

	var color, size string
	var haveSort bool
	for i, tok := range tokens {
		norm := normalizeToken(tok)
		if norm == "" {
			continue
		}

		if meta.Placement == "" && isPlacement(norm) {
			meta.Placement = norm
			continue
		}

		if color == "" {
			if colorSet[norm] {
				color = norm
				continue
			}
			// Multi-word colors ("heather-grey") split into adjacent tokens.
			if i+1 < len(tokens) {
				joined := norm + normalizeToken(tokens[i+1])
				if colorSet[joined] {
					color = joined
					continue
				}
			}
		}

		if size == "" {
			if s := normalizeSize(tok); recognizedSizes[s] {
				size = s
				continue
			}
		}

		if !haveSort {
			if n, err := strconv.Atoi(norm); err == nil {
				meta.SortIndex = n
				meta.ExplicitSort = true
				haveSort = true
			}
		}
	}

	if color != "" {
		meta.VariantID = matchNormalizedColorSize(variants, color, size)
	}

	return meta
}

// matchNormalizedColorSize is matchColorSize over already-normalized tokens:
// color+size when both were found, first variant with the color otherwise.
func matchNormalizedColorSize(variants []VariantRef, color, size string) *uuid.UUID {
	for i := range variants {
		if normalizeToken(variants[i].Color) != color {
			continue
		}
		if size != "" && normalizeSize(variants[i].Size) != size {
			continue
		}
		return &variants[i].ID
	}

	if size != "" {
		// No exact color+size pairing; fall back to color alone.
		for i := range variants {
			if normalizeToken(variants[i].Color) == color {
				return &variants[i].ID
			}
		}
	}
	return nil
}

// BaseName re-exports the archive helper so callers resolve against the same
// path segmentation the sanitizer produced.
func BaseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
