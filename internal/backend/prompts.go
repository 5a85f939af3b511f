package backend

import (
	"fmt"
	"unicode/utf8"

	"github.com/yangwenmai/studydo/internal/model"
)

// Format fragments for the structured kinds. The same fragment appears in
// the first-pass prompt and in the reformat prompt so the model sees
// identical requirements both times. The remote variant asks for JSON; the
// local variant asks for labeled plain text, which small models reproduce
// more reliably.
const (
	cardsJSONFormat = `{"cards": [{"front": "question or cue", "back": "answer"}]}`
	quizJSONFormat  = `{"questions": [{"question": "...", "options": ["...", "..."], "correctIndex": 0}]}`
	termsJSONFormat = `{"terms": [{"term": "...", "definition": "one sentence"}]}`

	cardsTextFormat = `Front: <question or cue>
Back: <answer>
---`
	quizTextFormat = `Q: <question>
A) <option>
B) <option>
C) <option>
Correct: <letter of the right option>
---`
	termsTextFormat = `<term>: <definition in one sentence>`
)

func jsonFormatFor(kind string) string {
	switch kind {
	case model.BlockFlashcards:
		return cardsJSONFormat
	case model.BlockQuiz:
		return quizJSONFormat
	case model.BlockKeyTerms:
		return termsJSONFormat
	}
	return ""
}

func textFormatFor(kind string) string {
	switch kind {
	case model.BlockFlashcards:
		return cardsTextFormat
	case model.BlockQuiz:
		return quizTextFormat
	case model.BlockKeyTerms:
		return termsTextFormat
	}
	return ""
}

func buildSummaryPrompt(material string) string {
	return fmt.Sprintf(`You are a study assistant. Summarize the material below.

Rules:
- At most 5 lines and 120 words total
- Plain prose, no headings, no bullet markers
- Cover the central claims, skip peripheral detail

Material:
%s`, material)
}

func buildMainQuestionPrompt(material string) string {
	return fmt.Sprintf(`State the single central question the material below tries to answer.

Rules:
- One or two sentences, phrased as a question
- No preamble, no commentary

Material:
%s`, material)
}

func buildInsightsPrompt(material string) string {
	return fmt.Sprintf(`List the most important insights from the material below.

Output one insight per line, each starting with "- ".

Rules:
- 3 to 7 insights
- Each insight is one sentence, concrete and specific to the material

Material:
%s`, material)
}

func buildArgumentPrompt(material string) string {
	return fmt.Sprintf(`Reconstruct the central argument of the material below.

Output one step per line, each starting with "- ", moving from premises to conclusion.

Rules:
- 3 to 6 steps
- The final step states the conclusion

Material:
%s`, material)
}

func buildOutlinePrompt(material string) string {
	return fmt.Sprintf(`Produce a hierarchical outline of the material below.

Output one entry per line. Top-level entries start with "- "; sub-entries are indented two spaces.

Rules:
- 4 to 10 top-level entries
- Entries are short phrases, not full sentences

Material:
%s`, material)
}

func buildAnswerPrompt(material, question string) string {
	return fmt.Sprintf(`You are a study assistant. Answer the question using ONLY the material below. If the material does not contain the answer, say so plainly.

Question: %s

Material:
%s`, question, material)
}

func buildCardsJSONPrompt(material string) string {
	return fmt.Sprintf(`Create flashcards from the material below.

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
%s

Rules:
- 6 to 12 cards
- Fronts are short cues; backs are complete answers
- Every card must be answerable from the material

Material:
%s`, cardsJSONFormat, material)
}

func buildQuizJSONPrompt(material string) string {
	return fmt.Sprintf(`Create a multiple-choice quiz from the material below.

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
%s

Rules:
- 4 to 8 questions
- 3 or 4 options each, exactly one correct
- correctIndex is the zero-based position of the correct option

Material:
%s`, quizJSONFormat, material)
}

func buildTermsJSONPrompt(material string) string {
	return fmt.Sprintf(`Extract the key terms from the material below.

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
%s

Rules:
- 6 to 12 terms
- Definitions are one sentence each
- No performance claims, percentages, or benchmark comparisons

Material:
%s`, termsJSONFormat, material)
}

func buildCardsTextPrompt(material string) string {
	return fmt.Sprintf(`Create flashcards from the material below.

Output each card exactly in this format, records separated by a line of three dashes:
%s

Rules:
- 6 to 12 cards
- No numbering, no commentary, nothing outside the format

Material:
%s`, cardsTextFormat, material)
}

func buildQuizTextPrompt(material string) string {
	return fmt.Sprintf(`Create a multiple-choice quiz from the material below.

Output each question exactly in this format, records separated by a line of three dashes:
%s

Rules:
- 4 to 8 questions
- 3 or 4 options each, exactly one correct
- No numbering, no commentary, nothing outside the format

Material:
%s`, quizTextFormat, material)
}

func buildTermsTextPrompt(material string) string {
	return fmt.Sprintf(`Extract the key terms from the material below.

Output one term per line, exactly in this format:
%s

Rules:
- 6 to 12 terms
- Definitions are one sentence each
- No performance claims, percentages, or benchmark comparisons

Material:
%s`, termsTextFormat, material)
}

func buildReformatPrompt(format, raw string) string {
	return fmt.Sprintf(`Your previous output did not follow the required format. Reformat it.

Do not add, remove, or invent content; only restructure what is already there.

Required format:
%s

Previous output:
%s`, format, raw)
}

func buildDigestPrompt(text string) string {
	return fmt.Sprintf(`Condense the text below into a compact digest that preserves every main claim, definition, and conclusion. Write plain prose, at most 400 words. Do not comment on the text or address the reader.

Text:
%s`, text)
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
