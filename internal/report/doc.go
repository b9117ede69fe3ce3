// Package report renders crawl, merge and migration results.
//
// Writers:
//   - SimpleWriter: plain text summaries for the terminal
//   - MarkdownWriter: shareable reports (nao1215/markdown), used by
//     `merge --report` and `migrate --report`
//   - JSONWriter: structured output for scripts
//
// All writers implement Writer and can be combined with MultiWriter.
package report
