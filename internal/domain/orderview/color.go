package orderview

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var colorHexByName = map[string]string{
	"negro":    "#000000",
	"blanco":   "#ffffff",
	"rojo":     "#e53935",
	"azul":     "#1e88e5",
	"verde":    "#43a047",
	"amarillo": "#fdd835",
	"gris":     "#9e9e9e",
	"naranja":  "#fb8c00",
	"marron":   "#6d4c41",
	"marrón":   "#6d4c41",
	"beige":    "#f5f5dc",
	"rosa":     "#f48fb1",
	"morado":   "#8e24aa",
	"fucsia":   "#d81b60",
	"camel":    "#c19a6b",
}

var hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// 色名（スペイン語）をスウォッチ用の16進に。#rgb/#rrggbb はそのまま
func ColorHex(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == NotAvailable {
		return ""
	}
	if hexColorRe.MatchString(name) {
		return strings.ToLower(name)
	}
	//Caser は goroutine 間で共有できないので毎回作る
	return colorHexByName[cases.Fold().String(name)]
}
