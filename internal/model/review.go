// Package model はドメインモデルを定義する。
package model

import "time"

// レビュー番号と評価の許容範囲。
// ストレージ層のCHECK制約と同一の値を使用すること。
const (
	ReviewNumberMin = 1
	ReviewNumberMax = 5
	RatingMin       = 1
	RatingMax       = 5
)

// Review はユーザーがレースに投稿したレビューを表す。
// ReviewNumberは同一ユーザー・同一レース内のスロット番号（1〜5）で、
// (user_id, race_id, review_number) の3つ組はストレージ層で一意に制約される。
// この制約により1ユーザーあたり1レース最大5件が保証される。
type Review struct {
	ID           string
	UserID       string
	RaceID       string
	ReviewNumber int
	Rating       int
	Comment      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReviewWithAuthor はレビューと投稿者情報を結合したモデル。
// usersテーブルとJOINして取得される。
type ReviewWithAuthor struct {
	Review
	AuthorName      string
	AuthorAvatarURL string
}
