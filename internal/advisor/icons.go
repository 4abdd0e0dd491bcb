package advisor

import "strings"

// DefaultIcon is used when no keyword matches.
const DefaultIcon = "leaf"

type iconRule struct {
	tag      string
	keywords []string
}

// Order matters: more specific names come before the words they contain
// ("sweet potato" before "potato", "cauliflower" before "cabbage").
var iconRules = []iconRule{
	{"rice", []string{"rice", "paddy", "boro", "aman", "aus", "ধান", "বোরো", "আমন", "আউশ"}},
	{"wheat", []string{"wheat", "গম"}},
	{"corn", []string{"maize", "corn", "ভুট্টা", "মেইজ"}},
	{"sorghum", []string{"sorghum", "জোয়ার", "জওয়ার"}},
	{"barley", []string{"barley", "বার্লি", "যব"}},
	{"jute", []string{"jute", "পাট"}},
	{"sweet-potato", []string{"sweet potato", "মিষ্টি আলু"}},
	{"potato", []string{"potato", "আলু"}},
	{"taro", []string{"taro", "কচু"}},
	{"tomato", []string{"tomato", "টমেটো"}},
	{"eggplant", []string{"eggplant", "brinjal", "বেগুন"}},
	{"chili", []string{"chili", "chilli", "মরিচ"}},
	{"onion", []string{"onion", "পেঁয়াজ"}},
	{"garlic", []string{"garlic", "রসুন"}},
	{"okra", []string{"okra", "ঢেঁড়স", "ভেন্ডি"}},
	{"cauliflower", []string{"cauliflower", "ফুলকপি"}},
	{"cabbage", []string{"cabbage", "বাঁধাকপি", "কপি"}},
	{"cucumber", []string{"cucumber", "শসা"}},
	{"pumpkin", []string{"pumpkin", "কুমড়া"}},
	{"lentil", []string{"lentil", "মসুর"}},
	{"grass-pea", []string{"grass pea", "খেসারি"}},
	{"chickpea", []string{"chickpea", "ছোলা"}},
	{"mung", []string{"mung", "মুগ"}},
	{"urd", []string{"urd", "black gram", "মাসকলাই"}},
	{"mustard", []string{"mustard", "সরিষা"}},
	{"sesame", []string{"sesame", "তিল"}},
	{"peanut", []string{"peanut", "groundnut", "চিনাবাদাম", "বাদাম"}},
	{"sunflower", []string{"sunflower", "সূর্যমুখী"}},
	{"sugarcane", []string{"sugarcane", "আখ"}},
	{"soybean", []string{"soybean", "সয়াবিন"}},
	{"pea", []string{"pea", "মটর"}},
	{"mango", []string{"mango"}},
	{"banana", []string{"banana", "কলা"}},
	{"papaya", []string{"papaya", "পেঁপে"}},
	{"watermelon", []string{"watermelon", "তরমুজ"}},
}

// IconTag picks an icon tag for a crop name (English or Bangla).
func IconTag(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultIcon
	}
	for _, r := range iconRules {
		for _, k := range r.keywords {
			if strings.Contains(n, k) {
				return r.tag
			}
		}
	}
	return DefaultIcon
}
