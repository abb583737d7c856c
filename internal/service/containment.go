package service

import (
	"github.com/TIPmigs/sikad-server/internal/geo"
)

// InsideAny проверяет вхождение позиции хотя бы в одну активную геозону.
// Оценка останавливается на первом совпадении; при перекрывающихся геозонах
// порядок внутри поколения не специфицирован, для машины состояний важен
// только факт вхождения, а не атрибуция.
func InsideAny(p geo.Point, fences []Fence) (bool, *Fence) {
	for i := range fences {
		if fences[i].Ring.Contains(p) {
			return true, &fences[i]
		}
	}
	return false, nil
}
