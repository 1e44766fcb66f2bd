package pipeline

// DefaultMaxChars and DefaultChunkSize bound how much of a book is analyzed
// and how large each model request is.
const (
	DefaultMaxChars  = 20000
	DefaultChunkSize = 2000
)

// SplitChunks truncates text to maxChars characters and cuts the rest into
// consecutive chunks of at most chunkSize characters. Lengths count runes,
// so multi-byte characters are never split. maxChars <= 0 disables
// truncation and chunkSize <= 0 falls back to DefaultChunkSize.
func SplitChunks(text string, maxChars, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	runes := []rune(text)
	if maxChars > 0 && len(runes) > maxChars {
		runes = runes[:maxChars]
	}

	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := min(start+chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
