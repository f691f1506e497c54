package models

// QuizOptionCount is the fixed number of answer options per question.
const QuizOptionCount = 4

// QuizQuestion is a single multiple-choice question generated from a
// finished story. CorrectAnswer indexes into Options.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}
