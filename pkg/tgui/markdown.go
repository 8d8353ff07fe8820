package tgui

import "strings"

// legacy Markdown (not MarkdownV2) only treats these as entities.
var mdReplacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// MdEsc escapes plain text for legacy Markdown parse mode. Backslash escapes
// are only honoured outside entities; use MdB, MdI or MdCode inside them.
func MdEsc(s string) string { return mdReplacer.Replace(s) }

// Inside an entity there is no escaping, so the entity's own delimiter is
// swapped for a look-alike and everything else is left literal.
var (
	mdBoldInner   = strings.NewReplacer("*", "∗")
	mdItalicInner = strings.NewReplacer("_", "‗")
)

func MdB(s string) string    { return "*" + mdBoldInner.Replace(s) + "*" }
func MdI(s string) string    { return "_" + mdItalicInner.Replace(s) + "_" }
func MdCode(s string) string { return "`" + strings.ReplaceAll(s, "`", "'") + "`" }
