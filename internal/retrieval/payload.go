package retrieval

import (
	"huda/internal/domain"
)

// Keys written for every document regardless of kind.
var reservedKeys = map[string]struct{}{
	domain.PayloadText:     {},
	domain.PayloadType:     {},
	domain.PayloadDocID:    {},
	domain.PayloadParentID: {},
	"transliteration":      {},
	"translation":          {},
	"feelings":             {},
	"chunk_index":          {},
}

// Schema keys per kind. Extra metadata may not shadow them even when the
// document leaves the field empty.
var schemaKeys = map[domain.Kind][]string{
	domain.KindAyah:    {"surah_number", "ayah_number", "juz_number", "ayah_type"},
	domain.KindTafseer: {domain.PayloadReferencedAyahs, "tafseer_type"},
	domain.KindHadith:  {"hadith_number", "source_collection", "explanation"},
	domain.KindDuaa:    {"feeling", "url", "dua_number", "source", "duas_count"},
}

func isProtected(kind domain.Kind, key string) bool {
	if _, ok := reservedKeys[key]; ok {
		return true
	}
	if key == kind.IDKey() {
		return true
	}
	for _, k := range schemaKeys[kind] {
		if k == key {
			return true
		}
	}
	return false
}

// buildPayload maps a validated document onto its stored payload. The
// returned slice lists extra metadata keys that were dropped.
func buildPayload(doc domain.Document, id string) (map[string]any, []string) {
	p := map[string]any{
		domain.PayloadText:  doc.Text,
		domain.PayloadType:  string(doc.Kind),
		domain.PayloadDocID: id,
		doc.Kind.IDKey():    id,
	}
	if doc.ParentID != "" {
		p[domain.PayloadParentID] = doc.ParentID
	} else {
		p[domain.PayloadParentID] = id
	}
	if doc.Transliteration != "" {
		p["transliteration"] = doc.Transliteration
	}
	if doc.Translation != "" {
		p["translation"] = doc.Translation
	}
	if len(doc.Feelings) > 0 {
		feelings := make([]any, len(doc.Feelings))
		for i, f := range doc.Feelings {
			feelings[i] = f
		}
		p["feelings"] = feelings
	}
	if doc.Kind != domain.KindDuaa {
		p["chunk_index"] = doc.ChunkIndex
	}

	switch doc.Kind {
	case domain.KindAyah:
		a := doc.Ayah
		p["surah_number"] = a.SurahNumber
		p["ayah_number"] = a.AyahNumber
		if a.JuzNumber != nil {
			p["juz_number"] = *a.JuzNumber
		}
		if a.AyahType != "" {
			p["ayah_type"] = a.AyahType
		}
	case domain.KindTafseer:
		refs := []any{}
		if t := doc.Tafseer; t != nil {
			for _, r := range t.ReferencedAyahs {
				refs = append(refs, map[string]any{
					"surah_number": r.SurahNumber,
					"ayah_number":  r.AyahNumber,
				})
			}
			if t.TafseerType != "" {
				p["tafseer_type"] = t.TafseerType
			}
		}
		p[domain.PayloadReferencedAyahs] = refs
	case domain.KindHadith:
		if h := doc.Hadith; h != nil {
			setIf(p, "hadith_number", h.HadithNumber)
			setIf(p, "source_collection", h.SourceCollection)
			setIf(p, "explanation", h.Explanation)
		}
	case domain.KindDuaa:
		d := doc.Duaa
		p["feeling"] = d.Feeling
		setIf(p, "url", d.URL)
		setIf(p, "dua_number", d.DuaNumber)
		setIf(p, "source", d.Source)
		if d.DuasCount != nil {
			p["duas_count"] = *d.DuasCount
		}
	}

	var dropped []string
	for k, v := range doc.ExtraMetadata {
		if isProtected(doc.Kind, k) {
			dropped = append(dropped, k)
			continue
		}
		p[k] = v
	}
	return p, dropped
}

func setIf(p map[string]any, key, value string) {
	if value != "" {
		p[key] = value
	}
}

// ReferencedAyahs decodes the referenced_ayahs payload value. Entries that
// are not surah/ayah pairs are skipped.
func ReferencedAyahs(payload map[string]any) []domain.AyahRef {
	raw, ok := payload[domain.PayloadReferencedAyahs].([]any)
	if !ok {
		if typed, ok := payload[domain.PayloadReferencedAyahs].([]map[string]any); ok {
			raw = make([]any, len(typed))
			for i := range typed {
				raw[i] = typed[i]
			}
		}
	}
	var refs []domain.AyahRef
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		surah, ok1 := intValue(m["surah_number"])
		ayah, ok2 := intValue(m["ayah_number"])
		if ok1 && ok2 {
			refs = append(refs, domain.AyahRef{SurahNumber: surah, AyahNumber: ayah})
		}
	}
	return refs
}
