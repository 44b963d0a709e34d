package handler

import (
	"github.com/hitoshi/pitwall/internal/auth"
	"github.com/hitoshi/pitwall/internal/race"
	"github.com/hitoshi/pitwall/internal/review"
	"github.com/hitoshi/pitwall/internal/user"
)

// 各ドメインサービスはハンドラーのインターフェースをそのまま満たすため、
// アダプタは型の適合確認のみを行う。

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ RaceServiceInterface = (*race.Service)(nil)
var _ ReviewServiceInterface = (*review.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
