package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	ScoreSessionsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	ScoreSessionsQueue:  "score_sessions_queue",
}
