package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

const corePropsPart = "docProps/core.xml"

// coreProperties is the OOXML core-properties part of a .docx container.
// Element names are matched by local name; the dc/cp/dcterms namespaces all
// resolve the same way. Document "author" is dc:creator and "comments" is
// dc:description, per the package conventions.
type coreProperties struct {
	XMLName        xml.Name `xml:"coreProperties"`
	Creator        string   `xml:"creator"`
	Title          string   `xml:"title"`
	Subject        string   `xml:"subject"`
	Keywords       string   `xml:"keywords"`
	Description    string   `xml:"description"`
	LastModifiedBy string   `xml:"lastModifiedBy"`
	Revision       string   `xml:"revision"`
	Created        string   `xml:"created"`
	Modified       string   `xml:"modified"`
	Category       string   `xml:"category"`
}

func decodeDOCX(data []byte, rec *Record) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	var props coreProperties
	found := false
	for _, f := range zr.File {
		if f.Name != corePropsPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = xml.NewDecoder(rc).Decode(&props)
		rc.Close()
		if err != nil {
			return err
		}
		found = true
		break
	}
	if !found {
		return errors.New("document has no core properties part")
	}

	// Raw keys are snake_case property names; pretty labels are the same
	// names title-cased with spaces.
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		rec.setRaw(key, value)
		rec.setPretty(titleCase(key), value)
	}

	set("author", props.Creator)
	set("title", props.Title)
	set("subject", props.Subject)
	set("keywords", props.Keywords)
	set("last_modified_by", props.LastModifiedBy)
	set("created", props.Created)
	set("modified", props.Modified)
	set("category", props.Category)
	set("comments", props.Description)
	set("revision", props.Revision)
	return nil
}

// titleCase turns "last_modified_by" into "Last Modified By".
func titleCase(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
