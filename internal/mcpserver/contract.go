package mcpserver

// TodayFormatContract describes what new Today's Content may contain.
const TodayFormatContract = `# Today's Content Format

The document has two level-1 sections that the tools manage:

` + "```" + `markdown
# Today's Content

Body shown as today's note.

# Archive
- [2024-06-01_12-00-00](archive/2024-06-01_12-00-00.md)
` + "```" + `

## Rules

1. **Content is the body only.** Do not include the ` + "`" + `# Today's Content` + "`" + ` heading.
2. **No level-1 ` + "`" + `# Today's Content` + "`" + ` or ` + "`" + `# Archive` + "`" + ` headings** in the body.
   Other headings (` + "`" + `## Notes` + "`" + `, ` + "`" + `# Reading` + "`" + `) are fine.
3. **Close every code fence.** An unclosed ` + "```" + ` hides the rest of the document.
4. **Not empty.** Whitespace-only content is rejected.
5. **Encoding** is UTF-8; leading and trailing blank lines are trimmed.

## What an update does

- The previous body, if non-empty, is written to ` + "`" + `archive/<YYYY-MM-DD_HH-MM-SS>.md` + "`" + `.
- A link to it is inserted first under ` + "`" + `# Archive` + "`" + `, so links read newest first.
- The Archive section is created at the end of the document if missing.
- Tags written as ` + "`" + `#tag` + "`" + ` and a first heading become the entry's tags and title in
  ` + "`" + `list_archive` + "`" + ` and ` + "`" + `search_archive` + "`" + `.
`
