// Package seed はYAMLファイルに記載されたアカウントを初期投入する。
//
// 投入はサインアップと同じ経路を通るため、学生アカウントにはプロフィールも作成される。
// 既に登録済みのメールアドレスはスキップするので、繰り返し実行しても安全。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/rollbook/internal/auth"
	"github.com/hitoshi/rollbook/internal/model"
)

// File はシードファイルの構造。
type File struct {
	Accounts []Account `yaml:"accounts"`
}

// Account はシードファイルの1アカウント分のエントリ。
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Name     string `yaml:"name"`
	Course   string `yaml:"course"`
}

// Signupper はアカウント作成を行うインターフェース。
type Signupper interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.SignupResult, error)
}

// Result は投入結果の件数。
type Result struct {
	Created int
	Skipped int
}

// LoadFile はシードファイルを読み込む。
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse はYAMLをFileに変換する。
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Apply はファイル内のアカウントを順に作成する。
// メールアドレス重複はスキップし、それ以外のエラーで中断する。
func Apply(ctx context.Context, svc Signupper, f *File) (Result, error) {
	var res Result
	for i, a := range f.Accounts {
		_, err := svc.Signup(ctx, auth.SignupInput{
			Name:     a.Name,
			Email:    a.Email,
			Password: a.Password,
			Course:   a.Course,
			Role:     a.Role,
		})
		if err == nil {
			res.Created++
			continue
		}

		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateEmail {
			slog.Info("seed account skipped", slog.String("email", model.NormalizeEmail(a.Email)))
			res.Skipped++
			continue
		}
		return res, fmt.Errorf("seed entry %d (%s): %w", i, a.Email, err)
	}
	return res, nil
}
