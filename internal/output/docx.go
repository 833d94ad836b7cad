package output

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/CRISUM/MeetingTool/internal/task"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// WriteSummaryDocx renders the markdown minutes as a styled docx.
func WriteSummaryDocx(dir, title, markdown string) (string, error) {
	path := filepath.Join(dir, SummaryDocxFile)
	if err := markdownToDocx(title, markdown, path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTranscriptDocx renders the merged transcript as a docx, one
// paragraph per speaker turn.
func WriteTranscriptDocx(dir, title string, segments []task.Segment) (string, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return "", err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)
	doc.AddParagraph("")

	var turn []task.Segment
	flush := func() {
		if len(turn) == 0 {
			return
		}
		p := doc.AddParagraph("")
		if turn[0].Speaker != "" {
			p.AddText(speakerLabel(turn[0].Speaker) + ": ").Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
		var texts []string
		for _, s := range turn {
			texts = append(texts, s.Text)
		}
		p.AddText(strings.Join(texts, " ")).Font(fontName).Size(fontSize).Color("000000")
		turn = turn[:0]
	}

	for _, s := range segments {
		if len(turn) > 0 && turn[0].Speaker != s.Speaker {
			flush()
		}
		turn = append(turn, s)
	}
	flush()

	path := filepath.Join(dir, TranscriptDocxFile)
	if err := doc.SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}

// markdownToDocx converts markdown text to a styled docx file.
func markdownToDocx(title, markdown, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			p := doc.AddParagraph("")
			addStyledRun(p, m[2], true, headingSize(len(m[1])))
			continue
		}

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			p := doc.AddParagraph("")
			addRichText(p, "• "+m[1])
			continue
		}

		if m := reNumbered.FindStringSubmatch(trimmed); m != nil {
			p := doc.AddParagraph("")
			addRichText(p, trimmed)
			continue
		}

		p := doc.AddParagraph("")
		addRichText(p, trimmed)
	}

	return doc.SaveTo(outputPath)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			clean := cleanMarkdownInline(part)
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			clean := cleanMarkdownInline(matches[i][1])
			p.AddText(clean).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
