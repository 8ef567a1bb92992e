package app

import "quiz-orchestrator/internal/domain"

// Inbound event types.
const (
	EventCreateSession       = "createSession"
	EventSetQuestionDuration = "setQuestionDuration"
	EventUploadQuiz          = "uploadQuiz"
	EventRegister            = "register"
	EventRequestQuizList     = "requestQuizList"
	EventSelectQuiz          = "selectQuiz"
	EventJoinPresenter       = "joinPresenter"
	EventSetScoreMode        = "setScoreMode"
	EventStartQuiz           = "startQuiz"
	EventNextQuestion        = "nextQuestion"
	EventEndTime             = "endTime"
	EventAnswer              = "answer"
	EventShowRanking         = "showRanking"
)

// Outbound event types.
const (
	OutSessionCreated = "sessionCreated"
	OutSessionError   = "sessionError"
	OutError          = "error"
	OutQuizList       = "quizList"
	OutParticipants   = "participants"
	OutQuizData       = "quizData"
	OutQuestionChange = "questionChange"
	OutScoreUpdate    = "scoreUpdate"
	OutForceDisable   = "forceDisable"
	OutQuizEnd        = "quizEnd"
	OutRanking        = "ranking"
)

// QuizData is the full quiz pushed to a room or a late joiner.
type QuizData struct {
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
	Duration  int               `json:"duration"`
}
