package clean

import (
	"archive/zip"
	"bytes"
	"io"
)

const corePropsPart = "docProps/core.xml"

// emptyCoreProps is a core-properties part with every field cleared. The
// part must remain present for the container to stay a valid document.
const emptyCoreProps = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"></cp:coreProperties>
`

// cleanDOCX rewrites the zip container, copying every part through except
// docProps/core.xml, which is replaced with an empty properties part.
func cleanDOCX(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	wroteProps := false
	for _, f := range zr.File {
		if f.Name == corePropsPart {
			if err := writeZipEntry(zw, corePropsPart, []byte(emptyCoreProps)); err != nil {
				return nil, err
			}
			wroteProps = true
			continue
		}
		if err := copyZipEntry(zw, f); err != nil {
			return nil, err
		}
	}
	if !wroteProps {
		if err := writeZipEntry(zw, corePropsPart, []byte(emptyCoreProps)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyZipEntry(zw *zip.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	header := f.FileHeader
	w, err := zw.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, rc)
	return err
}
