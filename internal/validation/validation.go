// Package validation はリクエストボディの入力検証を提供する。
//
// 検証ルールは構造体のvalidateタグで宣言し、違反時のメッセージは
// 同じフィールドのmessageタグで指定する。ルールごとに異なるメッセージが
// 必要な場合は message_<ルール名> タグが優先される。複数の違反がある場合でも
// フィールド宣言順で最初の違反のみを報告する。
//
// 組み込みルールに加えて maxbytes=N（UTF-8のバイト長の上限）を登録する。
// maxは文字数を数えるため、bcryptの72バイト制限のようなバイト単位の上限には使えない。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/rollbook/internal/model"
)

// Validator はgo-playground/validatorのラッパー。
// validator.Validateは構造体情報をキャッシュするため、プロセスで1つを共有する。
type Validator struct {
	validate *validator.Validate
}

// New はValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// 登録失敗はタグ名の誤りによるプログラミングエラーのみ
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// maxBytes は文字列のバイト長がパラメータ以下であることを検証する。
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return len(field.String()) <= limit
}

// Struct は構造体を検証する。違反がなければnilを返す。
func (v *Validator) Struct(s any) *model.APIError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return model.NewValidationError(messageFor(s, verrs[0]))
	}
	return model.NewValidationError("Invalid request body")
}

// messageFor は違反フィールドのmessage_<ルール名>タグ、なければmessageタグを返す。
// タグがない場合はフィールド名とルールから生成する。
func messageFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("message_" + fe.Tag()); msg != "" {
				return msg
			}
			if msg := f.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
