// Package model はドメインモデルを定義する。
package model

import "fmt"

// ErrorKind はAPIエラーの分類を表す。HTTPステータスへの対応はハンドラ層が決める。
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindAccessDenied ErrorKind = "access_denied"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindUnavailable  ErrorKind = "unavailable"
)

// APIError はサービス層から返される分類済みエラーを表す。
// Message はそのままレスポンスの message フィールドになる。
type APIError struct {
	Code    string    // エラーコード（ログ用）
	Kind    ErrorKind // 分類
	Message string    // 利用者向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUserExists          = "USER_EXISTS"
	ErrCodeDependantAccess     = "DEPENDANT_ACCESS_DENIED"
	ErrCodeMedicationAccess    = "MEDICATION_ACCESS_DENIED"
	ErrCodeMedicationNotFound  = "MEDICATION_NOT_FOUND"
	ErrCodeConfirmationMissing = "CONFIRMATION_NOT_FOUND"
	ErrCodeDependantNotFound   = "DEPENDANT_NOT_FOUND"
	ErrCodeRelationshipExists  = "RELATIONSHIP_EXISTS"
	ErrCodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Code: ErrCodeValidation, Kind: KindValidation, Message: message}
}

// NewAccessDeniedError は権限不足エラーを生成する。
func NewAccessDeniedError(code, message string) *APIError {
	return &APIError{Code: code, Kind: KindAccessDenied, Message: message}
}

// NewNotFoundError は対象が見つからないエラーを生成する。
func NewNotFoundError(code, message string) *APIError {
	return &APIError{Code: code, Kind: KindNotFound, Message: message}
}

// NewConflictError は重複エラーを生成する。
func NewConflictError(code, message string) *APIError {
	return &APIError{Code: code, Kind: KindConflict, Message: message}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの有無を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Code: ErrCodeInvalidCredentials, Kind: KindUnauthorized, Message: "Invalid credentials"}
}

// NewUserExistsError はメールアドレス重複エラーを生成する。
func NewUserExistsError() *APIError {
	return NewConflictError(ErrCodeUserExists, "User already exists")
}

// NewDependantAccessDeniedError は介護者と被介護者の関係が無い場合のエラーを生成する。
func NewDependantAccessDeniedError() *APIError {
	return NewAccessDeniedError(ErrCodeDependantAccess, "Access denied to this dependant")
}

// NewMedicationAccessDeniedError は他の介護者の薬を操作しようとした場合のエラーを生成する。
func NewMedicationAccessDeniedError() *APIError {
	return NewAccessDeniedError(ErrCodeMedicationAccess, "Access denied to this medication")
}

// NewMedicationNotFoundError は被介護者に割り当てられていない薬を指定された場合のエラーを生成する。
func NewMedicationNotFoundError() *APIError {
	return NewNotFoundError(ErrCodeMedicationNotFound, "Medication not found or access denied")
}

// NewConfirmationNotFoundError は服薬確認が存在しないか所有していない場合のエラーを生成する。
// 存在しないことと権限が無いことは区別しない。
func NewConfirmationNotFoundError() *APIError {
	return NewNotFoundError(ErrCodeConfirmationMissing, "Confirmation not found or access denied")
}

// NewDependantNotFoundError は指定メールアドレスの被介護者が存在しない場合のエラーを生成する。
func NewDependantNotFoundError() *APIError {
	return NewNotFoundError(ErrCodeDependantNotFound, "Dependant not found")
}

// NewRelationshipExistsError は関係が既に登録済みの場合のエラーを生成する。
func NewRelationshipExistsError() *APIError {
	return NewConflictError(ErrCodeRelationshipExists, "Relationship already exists")
}

// NewStorageUnavailableError は写真ストレージが未設定の場合のエラーを生成する。
func NewStorageUnavailableError() *APIError {
	return &APIError{Code: ErrCodeStorageUnavailable, Kind: KindUnavailable, Message: "Photo storage is not configured"}
}
