// Package model はドメインモデルを定義する。
package model

// Race はグランプリ（レース）を表す。
// slugは公開URLで使用する一意キー。作成後は原則イミュータブル。
type Race struct {
	ID         string
	Slug       string
	Name       string
	LatestRace bool
}
