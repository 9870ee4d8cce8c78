package loader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// parseDocx extracts the visible text runs from word/document.xml inside a
// .docx archive. Paragraph boundaries become newlines so downstream chunking
// can split on them.
func parseDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return extractDocxText(xml.NewDecoder(rc))
	}
	return "", errors.New("docx: word/document.xml not found")
}

func extractDocxText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
