package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// CorrectAnswer is one of "A".."D" and must never be serialized
// to an exam taker before results are announced.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer string    `json:"-"`
	Marks         int       `json:"marks"`
	NegativeMarks int       `json:"negative_marks"`
	QuestionOrder int       `json:"question_order"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionForStudent is a question stripped of the correct answer.
type QuestionForStudent struct {
	ID            uuid.UUID `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	Marks         int       `json:"marks"`
	QuestionOrder int       `json:"question_order"`
}

// ForStudent returns the question without grading fields.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:            q.ID,
		QuestionText:  q.QuestionText,
		OptionA:       q.OptionA,
		OptionB:       q.OptionB,
		OptionC:       q.OptionC,
		OptionD:       q.OptionD,
		Marks:         q.Marks,
		QuestionOrder: q.QuestionOrder,
	}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionText  string `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string `json:"option_a" binding:"required,max=500"`
	OptionB       string `json:"option_b" binding:"required,max=500"`
	OptionC       string `json:"option_c" binding:"required,max=500"`
	OptionD       string `json:"option_d" binding:"required,max=500"`
	CorrectAnswer string `json:"correct_answer" binding:"required,oneof=A B C D"`
	Marks         int    `json:"marks" binding:"required,min=1"`
	NegativeMarks int    `json:"negative_marks" binding:"min=0"`
	QuestionOrder int    `json:"question_order" binding:"min=0"`
}
