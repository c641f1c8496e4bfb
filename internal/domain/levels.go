package domain

// Level bounds for a Saalik.
const (
	MinLevel = 0
	MaxLevel = 6
)

func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// LevelSeed is one record of the static level catalog.
type LevelSeed struct {
	Level          int
	NameUrdu       string
	Description    string
	RequiredFields []string
}

// SeedLevels returns the seven-level master catalog. Required fields grow
// monotonically with the level.
func SeedLevels() []LevelSeed {
	return []LevelSeed{
		{
			Level:          0,
			NameUrdu:       "ابتدائی",
			Description:    "قائم تعلق اصلاحی یا بیعت ابھی آغاز کا معمولات کیا۔ کیا نہیں ہوا۔ نہیں",
			RequiredFields: []string{"categories.farayz", "categories.zikr"},
		},
		{
			Level:          1,
			NameUrdu:       "معمولات ابتدائی",
			Description:    "اور اذکار تسبیحات، مرد روز بنیادی جسمی پابندی کی نمازوں اعمال۔ اور موت، مراقبہ ذکر، آواز بلند آغاز کا تعاملات",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat"},
		},
		{
			Level:          2,
			NameUrdu:       "بالجبر ذکر",
			Description:    "مراقبہ دلیلی، ذکر کا سانسوں عمل، کا حضوری کی دل اور",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat", "categories.nawafil"},
		},
		{
			Level:          3,
			NameUrdu:       "الفاس پاس",
			Description:    "کی (اللہ معیت مشق) کی لطائف (اللہ صفاتی احساس)، کا برادری (رجوع) مکمل طرف کی",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat", "categories.nawafil", "categories.hifazat"},
		},
		{
			Level:          4,
			NameUrdu:       "لطائف",
			Description:    "کرتے فکر، و ذکر کا سطح اعلی، مقامات روحانی",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat", "categories.nawafil", "categories.hifazat", "categories.sleep_wake"},
		},
		{
			Level:          5,
			NameUrdu:       "الاذکار سلطان",
			Description:    "اور مراقبے ترین اعلی کی توحید سفر کا فنا مکمل سالک کے اللہ",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat", "categories.nawafil", "categories.hifazat", "categories.sleep_wake"},
		},
		{
			Level:          6,
			NameUrdu:       "اثبات نفی",
			Description:    "اعلی ترین مراقبے اور ذکر کی انتہا",
			RequiredFields: []string{"categories.farayz", "categories.zikr", "categories.quran_tilawat", "categories.nawafil", "categories.hifazat", "categories.sleep_wake"},
		},
	}
}
