package models

// Attribute values used by the bundled catalogs and the UI forms.
// Stored talents may carry other values; these are not enforced on load.
var (
	Genders     = []string{"male", "female", "non_binary", "other"}
	AgeGroups   = []string{"child", "teen", "young_adult", "adult", "mature", "senior"}
	Ethnicities = []string{"caucasian", "african", "asian", "hispanic", "mixed", "middle_eastern", "other"}
	SkinTones   = []string{"very_light", "light", "light_warm", "medium", "medium_warm", "dark", "very_dark"}
	HairColors  = []string{"blonde", "brown", "black", "red", "auburn", "brown_auburn", "gray", "white", "other"}
	HairStyles  = []string{"short", "medium", "long", "curly", "wavy", "straight", "long_wavy", "bald", "other"}
	EyeColors   = []string{"blue", "brown", "green", "hazel", "gray", "amber", "other"}
	BodyTypes   = []string{"slim", "athletic", "average", "curvy", "plus_size", "slim_tall", "other"}
)
