package docconv

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Chapter is one EPUB content document.
type Chapter struct {
	Title string
	Body  string // plain text, blank-line separated paragraphs
}

// Book is the metadata and content of an EPUB to package.
type Book struct {
	Title    string
	Author   string
	Language string // default "pt-BR"
	Chapters []Chapter
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const bookCSS = `body { font-family: serif; line-height: 1.6; margin: 1em; }
h1 { text-align: center; margin-bottom: 2em; }
p { text-indent: 1.5em; margin: 0 0 0.5em 0; }
`

// BuildEPUB packages a book as EPUB bytes. The mimetype entry is
// written first and uncompressed, as the container format requires.
func BuildEPUB(book Book) ([]byte, error) {
	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("build epub: no chapters")
	}
	if book.Language == "" {
		book.Language = "pt-BR"
	}
	bookID := uuid.NewString()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mimetype.Write([]byte("application/epub+zip")); err != nil {
		return nil, fmt.Errorf("write mimetype entry: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", packageDoc(book, bookID)},
		{"OEBPS/nav.xhtml", navDoc(book)},
		{"OEBPS/style.css", bookCSS},
	}
	for i, ch := range book.Chapters {
		files = append(files, struct {
			name    string
			content string
		}{chapterFile(i), chapterDoc(ch)})
	}

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize epub: %w", err)
	}
	return buf.Bytes(), nil
}

func chapterFile(i int) string {
	return fmt.Sprintf("OEBPS/chapter_%03d.xhtml", i+1)
}

func packageDoc(book Book, bookID string) string {
	var manifest, spine strings.Builder
	for i := range book.Chapters {
		id := fmt.Sprintf("chapter%03d", i+1)
		fmt.Fprintf(&manifest, `    <item id="%s" href="chapter_%03d.xhtml" media-type="application/xhtml+xml"/>`+"\n", id, i+1)
		fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">urn:uuid:%s</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>%s</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="css" href="style.css" media-type="text/css"/>
%s  </manifest>
  <spine>
%s  </spine>
</package>
`, bookID, xmlEscape(book.Title), xmlEscape(book.Author), book.Language, manifest.String(), spine.String())
}

func navDoc(book Book) string {
	var items strings.Builder
	for i, ch := range book.Chapters {
		fmt.Fprintf(&items, `      <li><a href="chapter_%03d.xhtml">%s</a></li>`+"\n", i+1, xmlEscape(ch.Title))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>%s</title></head>
<body>
  <nav epub:type="toc">
    <ol>
%s    </ol>
  </nav>
</body>
</html>
`, xmlEscape(book.Title), items.String())
}

func chapterDoc(ch Chapter) string {
	var body strings.Builder
	for _, para := range strings.Split(ch.Body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		body.WriteString("  <p>" + xmlEscape(para) + "</p>\n")
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>%s</title>
  <link rel="stylesheet" type="text/css" href="style.css"/>
</head>
<body>
  <h1>%s</h1>
%s</body>
</html>
`, xmlEscape(ch.Title), xmlEscape(ch.Title), body.String())
}

func xmlEscape(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	).Replace(s)
}
