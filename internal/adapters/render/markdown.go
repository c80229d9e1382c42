package render

import (
	"strings"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// markdownEscaper backslash-escapes characters that would otherwise start
// markdown syntax or raw HTML inside user-entered quote text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
	"~", `\~`,
	"!", `\!`,
)

// Markdown converts a view to markdown. Text nodes become block quotes,
// categories emphasized lines and separators thematic breaks.
func Markdown(view ports.View) string {
	var b strings.Builder

	for _, node := range view.Nodes {
		content := markdownEscaper.Replace(node.Content)

		switch node.Kind {
		case ports.NodeText:
			b.WriteString("> ")
			b.WriteString(content)
			b.WriteString("\n\n")
		case ports.NodeCategory:
			b.WriteString("*")
			b.WriteString(content)
			b.WriteString("*\n\n")
		case ports.NodeSeparator:
			b.WriteString("---\n\n")
		default:
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}

	return b.String()
}
