// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, review, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeRaceNotFound           = "RACE_NOT_FOUND"
	ErrCodeReviewNotFound         = "REVIEW_NOT_FOUND"
	ErrCodeReviewSlotTaken        = "REVIEW_SLOT_TAKEN"
	ErrCodeReviewNumberOutOfRange = "REVIEW_NUMBER_OUT_OF_RANGE"
	ErrCodeRatingOutOfRange       = "RATING_OUT_OF_RANGE"
	ErrCodeAvatarUnavailable      = "AVATAR_UNAVAILABLE"
	ErrCodeStorageUnavailable     = "STORAGE_UNAVAILABLE"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は認可エラーを生成する。
// 認証済みだがリソースの所有者と一致しない場合に使用する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースへのアクセス権限がありません。",
		Category: "auth",
		Action:   "自分のリソースに対してのみ操作を実行してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRaceNotFoundError はレースが見つからない場合のエラーを生成する。
func NewRaceNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeRaceNotFound,
		Message:  fmt.Sprintf("指定されたレースが見つかりません: %s", slug),
		Category: "review",
		Action:   "レースのslugを確認してください。",
	}
}

// NewReviewNotFoundError はレビューが見つからない場合のエラーを生成する。
func NewReviewNotFoundError(reviewNumber int) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: スロット%d", reviewNumber),
		Category: "review",
		Action:   "レビュー番号を確認してください。",
	}
}

// NewReviewSlotTakenError はレビュースロットの重複エラーを生成する。
// ストレージ層の一意制約違反（同一の user, race, review_number）を表す。
func NewReviewSlotTakenError(reviewNumber int) *APIError {
	return &APIError{
		Code:     ErrCodeReviewSlotTaken,
		Message:  fmt.Sprintf("レビュー番号%dは既に使用されています。", reviewNumber),
		Category: "review",
		Action:   "別のレビュー番号（1〜5）を指定してください。",
	}
}

// NewReviewNumberOutOfRangeError はレビュー番号の範囲外エラーを生成する。
// ストレージ層のCHECK制約違反を表す。
func NewReviewNumberOutOfRangeError(reviewNumber int) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNumberOutOfRange,
		Message:  fmt.Sprintf("無効なレビュー番号です: %d", reviewNumber),
		Category: "validation",
		Action:   fmt.Sprintf("レビュー番号は%dから%dの範囲で指定してください。", ReviewNumberMin, ReviewNumberMax),
	}
}

// NewRatingOutOfRangeError は評価値の範囲外エラーを生成する。
func NewRatingOutOfRangeError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeRatingOutOfRange,
		Message:  fmt.Sprintf("無効な評価値です: %d", rating),
		Category: "validation",
		Action:   fmt.Sprintf("評価は%dから%dの範囲で指定してください。", RatingMin, RatingMax),
	}
}

// NewAvatarUnavailableError はアバター画像を取得できない場合のエラーを生成する。
func NewAvatarUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeAvatarUnavailable,
		Message:  "アバター画像を取得できませんでした。",
		Category: "system",
		Action:   "アバターURLを確認するか、しばらく待ってから再度お試しください。",
	}
}

// NewStorageUnavailableError はストレージ接続不能エラーを生成する。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "データベースに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
