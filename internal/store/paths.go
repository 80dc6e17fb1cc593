package store

// ストア上のパス配置
// ルーム直下に questions コレクション、各質問の直下に likes コレクションを持ちます

func RoomPath(roomId string) string {
	return "rooms/" + roomId
}

func QuestionsPath(roomId string) string {
	return RoomPath(roomId) + "/questions"
}

func QuestionPath(roomId, questionId string) string {
	return QuestionsPath(roomId) + "/" + questionId
}

func LikesPath(roomId, questionId string) string {
	return QuestionPath(roomId, questionId) + "/likes"
}

func LikePath(roomId, questionId, likeId string) string {
	return LikesPath(roomId, questionId) + "/" + likeId
}
