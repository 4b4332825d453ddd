package config

type WorkerKeyStruct struct {
	PersistAnswersQueue    string
	ScoreAttemptsQueue     string
	PersistViolationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:    "persist_answers_queue",
	ScoreAttemptsQueue:     "score_attempts_queue",
	PersistViolationsQueue: "persist_violations_queue",
}
