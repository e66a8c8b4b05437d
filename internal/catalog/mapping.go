package catalog

import (
	"fmt"
	"strings"
)

// categoryKeywords - таблица выведения категории по названию товара,
// когда upstream не отдает свою. Порядок важен: первое совпадение побеждает.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"iphone", "Apple"},
	{"ipad", "Apple"},
	{"macbook", "Apple"},
	{"airpods", "Apple"},
	{"galaxy", "Samsung"},
	{"playstation", "Gaming"},
	{"nintendo", "Gaming"},
	{"xbox", "Gaming"},
	{"headphones", "Audio"},
	{"earbuds", "Audio"},
	{"speaker", "Audio"},
	{"soundbar", "Audio"},
	{"camera", "Photography"},
	{"lens", "Photography"},
	{"laptop", "Computers"},
	{"monitor", "Computers"},
	{"keyboard", "Computers"},
	{"tv", "TV & Home Theater"},
	{"watch", "Wearables"},
	{"drone", "Drones"},
}

// DeriveCategory подбирает человекочитаемую категорию по ключевым словам названия
func DeriveCategory(title string) string {
	lower := strings.ToLower(title)
	for _, kc := range categoryKeywords {
		if strings.Contains(lower, kc.keyword) {
			return kc.category
		}
	}
	return "General"
}

// SynthesizeDescription собирает короткое описание из названия, категории
// и ценового диапазона, если магазин описание не прислал
func SynthesizeDescription(title, category string, price *float64) string {
	tier := "product"
	if price != nil {
		switch {
		case *price >= 1000:
			tier = "premium product"
		case *price >= 200:
			tier = "mid-range product"
		default:
			tier = "budget-friendly product"
		}
	}
	if category != "" && category != "General" {
		return fmt.Sprintf("%s - %s in %s", title, tier, category)
	}
	return fmt.Sprintf("%s - %s", title, tier)
}

// RelatedSearchTerms извлекает термины для вторичного поиска похожих товаров:
// первые значимые слова названия без модельного хвоста
func RelatedSearchTerms(name string) string {
	fields := strings.Fields(name)
	var terms []string
	for _, f := range fields {
		f = strings.Trim(f, ",.()-")
		if len(f) < 2 {
			continue
		}
		terms = append(terms, f)
		if len(terms) == 2 {
			break
		}
	}
	return strings.Join(terms, " ")
}
