package catalog

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

func talents(n int) []models.Talent {
	out := make([]models.Talent, n)
	for i := range out {
		out[i] = models.Talent{ID: string(rune('a'+i%26)) + "_" + string(rune('0'+i/26)), Name: "T"}
	}
	return out
}

func ids(ts []models.Talent) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestFilter_Tags(t *testing.T) {
	in := []models.Talent{{ID: "lia", Tags: []string{"Editorial", "Sporty"}}}

	or := Filter(in, models.FilterSpec{TagFilter: []string{"editorial", "beauty"}, TagLogic: models.TagLogicOR})
	assert.Len(t, or, 1)

	and := Filter(in, models.FilterSpec{TagFilter: []string{"editorial", "beauty"}, TagLogic: models.TagLogicAND})
	assert.Empty(t, and)

	andOK := Filter(in, models.FilterSpec{TagFilter: []string{"SPORTY", "editorial"}, TagLogic: models.TagLogicAND})
	assert.Len(t, andOK, 1)

	defaultLogic := Filter(in, models.FilterSpec{TagFilter: []string{"beauty", "sporty"}})
	assert.Len(t, defaultLogic, 1, "empty logic behaves as OR")
}

func TestFilter_Predicates(t *testing.T) {
	in := []models.Talent{
		{ID: "1", Name: "Lia Rossi", Gender: "female", AgeGroup: "young_adult", Ethnicity: "mixed", IsFavorite: true},
		{ID: "2", Name: "Marco", Gender: "male", AgeGroup: "adult", Ethnicity: "caucasian"},
		{ID: "3", Name: "Sofia", Gender: "female", AgeGroup: "teen", Ethnicity: "hispanic", HairColor: "black"},
		{ID: "4", Name: "Giulia", Gender: "Female", AgeGroup: "adult"},
	}

	tests := []struct {
		name string
		spec models.FilterSpec
		want []string
	}{
		{"no constraint", models.FilterSpec{}, []string{"1", "2", "3", "4"}},
		{"name substring any case", models.FilterSpec{NameFilter: "ROSS"}, []string{"1"}},
		{"gender exact and case-sensitive", models.FilterSpec{Gender: "female"}, []string{"1", "3"}},
		{"age group", models.FilterSpec{AgeGroup: "adult"}, []string{"2", "4"}},
		{"ethnicity", models.FilterSpec{Ethnicity: "hispanic"}, []string{"3"}},
		{"favorites only", models.FilterSpec{FavoritesOnly: true}, []string{"1"}},
		{"hair color", models.FilterSpec{HairColor: "black"}, []string{"3"}},
		{"combined", models.FilterSpec{Gender: "female", AgeGroup: "teen"}, []string{"3"}},
		{"blank tags ignored", models.FilterSpec{TagFilter: []string{" ", ""}}, []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(in, tt.spec)))
		})
	}
}

func TestFilter_SubsequenceAndNoMutation(t *testing.T) {
	in := []models.Talent{
		{ID: "c", Tags: []string{"x"}},
		{ID: "a", Tags: []string{"y"}},
		{ID: "b", Tags: []string{"X"}},
	}
	before := ids(in)

	got := Filter(in, models.FilterSpec{TagFilter: []string{"x"}})

	assert.Equal(t, []string{"c", "b"}, ids(got))
	assert.Equal(t, before, ids(in))
	assert.Equal(t, []string{"X"}, in[2].Tags)
}

func TestParseTagLogicAndSplitTags(t *testing.T) {
	assert.Equal(t, models.TagLogicAND, ParseTagLogic("and"))
	assert.Equal(t, models.TagLogicAND, ParseTagLogic(" AND "))
	assert.Equal(t, models.TagLogicOR, ParseTagLogic("xor"))
	assert.Equal(t, models.TagLogicOR, ParseTagLogic(""))

	assert.Equal(t, []string{"editorial", "beauty"}, SplitTags(" Editorial, ,BEAUTY,"))
	assert.Empty(t, SplitTags(""))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name           string
		count          int
		page, size     int
		wantStart      int
		wantLen        int
		wantTotalPages int
	}{
		{"empty", 0, 1, 20, 0, 0, 1},
		{"seven fit on page one", 7, 1, 20, 0, 7, 1},
		{"three fit on page one", 3, 1, 20, 0, 3, 1},
		{"27 page 1", 27, 1, 20, 0, 7, 2},
		{"27 page 2", 27, 2, 20, 7, 20, 2},
		{"30 page 2", 30, 2, 20, 7, 20, 3},
		{"30 page 3", 30, 3, 20, 27, 3, 3},
		{"30 page 4 beyond range", 30, 4, 20, 0, 0, 3},
		{"7 page 2 beyond range", 7, 2, 20, 0, 0, 1},
		{"8 items size 1", 8, 2, 1, 7, 1, 2},
		{"huge page", 30, math.MaxInt, 20, 0, 0, 3},
		{"large page", 30, math.MaxInt / 10, 20, 0, 0, 3},
		{"huge size page 2", 30, 2, math.MaxInt, 7, 23, 2},
		{"huge size page 3", 30, 3, math.MaxInt, 0, 0, 2},
		{"huge size few items", 5, 2, math.MaxInt, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := talents(tt.count)
			p, err := Paginate(in, tt.page, tt.size)
			require.NoError(t, err)

			assert.Equal(t, tt.count, p.TotalCount)
			assert.Equal(t, tt.wantTotalPages, p.TotalPages)
			require.Len(t, p.Items, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, in[tt.wantStart].ID, p.Items[0].ID)
				assert.Equal(t, in[tt.wantStart+tt.wantLen-1].ID, p.Items[tt.wantLen-1].ID)
			}
		})
	}
}

func TestPaginate_InvalidArguments(t *testing.T) {
	for _, size := range []int{0, -5} {
		_, err := Paginate(talents(10), 1, size)
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "size %d", size)
	}
	_, err := Paginate(talents(10), 0, 20)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestDescribe(t *testing.T) {
	lia := Sample(time.Now()).Talents[0]
	assert.Equal(t,
		"young adult female; long wavy brown auburn hair; light warm skin; green eyes; with freckles; editorial, sporty style.",
		Describe(lia))

	assert.Equal(t, "given", Describe(models.Talent{Description: "given"}))
	assert.Equal(t, "Talent: Bob", Describe(models.Talent{Name: "Bob"}))
	assert.Equal(t, "Talent: Unknown", Describe(models.Talent{}))

	onlyGender := models.Talent{Gender: "male", Tags: []string{"a", "b", "c"}}
	assert.Equal(t, "a, b style.", Describe(onlyGender))
}

func TestWithDescriptionAndMetadata(t *testing.T) {
	tl := models.Talent{ID: "t1", Name: "Lia", Gender: "female", Tags: []string{"a", "b"}, IsFavorite: true}

	assert.Equal(t, "a, b style.", WithDescription(tl).Description)
	assert.Empty(t, tl.Description)
	assert.Equal(t, "kept", WithDescription(models.Talent{Description: "kept", EyeColor: "blue"}).Description)

	assert.Equal(t, "Name: Lia\nID: t1\nGender: female\nTags: a, b\nFavorite: true", Metadata(tl))
}

func TestSampleIDsAreValid(t *testing.T) {
	c := Sample(time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC))
	require.Len(t, c.Talents, 3)
	for _, tl := range c.Talents {
		assert.True(t, models.ValidID(tl.ID), tl.ID)
	}
	assert.Equal(t, "2025-09-14", c.Created)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(filepath.Join(images, "nested"), 0o755))
	for _, name := range []string{"anna-maria.jpg", "Bob_Smith.PNG", "notes.txt", "anna maria.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(images, name), []byte("x"), 0o644))
	}

	c, err := Scan(dir, images, time.Now())
	require.NoError(t, err)
	require.Len(t, c.Talents, 3)

	byPath := map[string]models.Talent{}
	for _, tl := range c.Talents {
		assert.True(t, models.ValidID(tl.ID), tl.ID)
		byPath[tl.ImagePath] = tl
	}
	assert.Equal(t, "Bob Smith", byPath["images/Bob_Smith.PNG"].Name)
	assert.Equal(t, "talent_bob_smith", byPath["images/Bob_Smith.PNG"].ID)
	assert.Equal(t, "Anna Maria", byPath["images/anna-maria.jpg"].Name)
	assert.NotEqual(t, byPath["images/anna-maria.jpg"].ID, byPath["images/anna maria.jpeg"].ID)
}

func TestScan_MissingFolder(t *testing.T) {
	dir := t.TempDir()
	c, err := Scan(dir, filepath.Join(dir, "nope"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, c.Talents)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "anna_maria__x", SanitizeID("Anna Maria-!X"))
}
