package model

// 配送先の地域（departamento / provincia / distrito）
type Ubigeo struct {
	Department string `json:"departamento"`
	Province   string `json:"provincia"`
	District   string `json:"distrito"`
}
