package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	//一意制約違反（同じカテゴリ名など）
	ErrDuplicate = errors.New("duplicate")
	//在庫を減らせなかった
	ErrInsufficientStock = errors.New("insufficient stock")
)
