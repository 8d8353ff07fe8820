// Package tgui provides small helpers for building chat markup:
//   - HTML fragments that are safe for ParseMode="HTML" (auto escaping)
//   - Markdown escaping for ParseMode="Markdown"
//   - Rune-aware truncation and length checks
package tgui
