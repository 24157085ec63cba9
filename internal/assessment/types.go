package assessment

import (
	"encoding/json"
	"time"
)

// Assessment is the root record for one exam instance: the teacher's two
// documents plus every student submission attached so far.
type Assessment struct {
	ID                string       `json:"assessmentId"`
	Name              string       `json:"assessmentName"`
	QuestionPaperPath string       `json:"questionPaperPath"`
	AnswerKeyPath     string       `json:"answerKeyPath"`
	Submissions       []Submission `json:"submissions"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Submission is one student's uploaded answer sheet. TotalMarks starts as
// the ingestion-time score and reflects the reviewed total once an
// evaluation has been written for the candidate.
type Submission struct {
	CandidateKey    string    `json:"candidateKey"`
	AnswerSheetPath string    `json:"answerSheetPath"`
	TotalMarks      float64   `json:"totalMarks"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Question is one reviewed question in a candidate's evaluation. Rubric is
// opaque reviewer metadata, stored and returned untouched.
type Question struct {
	Number       int             `json:"number"`
	AwardedMarks float64         `json:"awarded_marks"`
	MaxMarks     float64         `json:"max_marks,omitempty"`
	Rubric       json.RawMessage `json:"rubric,omitempty"`
}

type AnswerSheetRef struct {
	URL string `json:"url"`
}

// EvaluationView is what a reviewer sees for one candidate: before the
// first review Questions is empty and TotalMarks carries the ingestion
// score; afterwards both come from the last evaluation write.
type EvaluationView struct {
	AssessmentName     string         `json:"assessmentName"`
	CandidateKey       string         `json:"candidateKey"`
	StudentAnswerSheet AnswerSheetRef `json:"studentAnswerSheet"`
	Questions          []Question     `json:"questions"`
	TotalMarks         float64        `json:"totalMarks"`
}
