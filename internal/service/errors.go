package service

import "errors"

// カスタムエラー定義
var (
	ErrRoomNotFound             = errors.New("room not found")
	ErrQuestionNotFound         = errors.New("question not found")
	ErrNotRoomOwner             = errors.New("forbidden: not room owner")
	ErrRoomEnded                = errors.New("room has ended")
	ErrNotLikeOwner             = errors.New("forbidden: not like owner")
	ErrEmptyContent             = errors.New("question content is empty")
	ErrEmptyTitle               = errors.New("room title is empty")
	ErrRoomCodeGenerationFailed = errors.New("failed to generate unique room code after multiple attempts")
)
