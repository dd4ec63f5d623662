package text

import (
	"regexp"
	"strings"
)

// Policy selects how extracted text is split before indexing. Downstream
// code only relies on chunk+index pairs being order-reconstructible, so the
// two policies are interchangeable at retrieval time.
type Policy string

const (
	// PolicySentence accumulates whole sentences up to a soft word cap.
	PolicySentence Policy = "sentence"
	// PolicyWordWindow partitions the word sequence into fixed-size windows
	// with no sentence awareness.
	PolicyWordWindow Policy = "word_window"
)

// sentenceRe matches a run of text up to and including its terminal
// punctuation. A trailing run without terminal punctuation matches too, so
// no input is ever dropped.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Chunk splits text into ordered chunks using the given policy. maxWords is
// a soft cap measured in words, never a truncation boundary.
func Chunk(text string, maxWords int, policy Policy) []string {
	if policy == PolicyWordWindow {
		return ChunkWords(text, maxWords)
	}
	return ChunkSentences(text, maxWords)
}

// SplitSentences splits on sentence-terminal punctuation. Whitespace around
// each sentence is trimmed and empty fragments are dropped.
func SplitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ChunkSentences accumulates sentences into chunks of at most maxWords
// words. A sentence that would push a non-empty chunk over the cap starts a
// new chunk instead. A single sentence longer than maxWords is kept whole.
// The final partial chunk is always flushed.
func ChunkSentences(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = 200
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentWords := 0

	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if currentWords+words > maxWords && currentWords > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentWords = 0
		}
		current = append(current, sentence)
		currentWords += words
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// ChunkWords partitions the word sequence into windows of maxWords words.
func ChunkWords(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = 200
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// WordCount reports the naive whitespace-separated word count used as the
// chunk size unit. No real tokenizer is involved.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
