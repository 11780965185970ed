// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Role はユーザーの役割を表す。介護者と被介護者の二値のみ。
type Role string

const (
	RoleCarer     Role = "carer"
	RoleDependant Role = "dependant"
)

// ParseRole は文字列を Role に変換する。未知の値はエラー。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCarer, RoleDependant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は認証済みリクエストの主体を表す。
type Principal struct {
	UserID string
	Role   Role
}

// Relationship は介護者と被介護者の関係を表す。
type Relationship struct {
	ID          string
	CarerID     string
	DependantID string
	CreatedAt   time.Time
}
