package tenant_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stamp-engine/tenant"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseOffset(t *testing.T) {
	cases := []struct {
		in      string
		ok      bool
		seconds int
	}{
		{"UTC+09:00", true, 9 * 3600},
		{"UTC-05:30", true, -(5*3600 + 30*60)},
		{"UTC+5", true, 5 * 3600},
		{"UTC+14:00", true, 14 * 3600},
		{"UTC-12:00", true, -12 * 3600},
		{"UTC+14:30", false, 0},
		{"UTC-12:30", false, 0},
		{"UTC+15:00", false, 0},
		{"UTC+09:60", false, 0},
		{"GMT+09:00", false, 0},
		{"", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			loc, ok := tenant.ParseOffset(tc.in)
			require.Equal(t, tc.ok, ok)
			if ok {
				_, off := now.In(loc).Zone()
				assert.Equal(t, tc.seconds, off)
			}
		})
	}
}

func TestCoerceOffset(t *testing.T) {
	label, ok := tenant.CoerceOffset("UTC+9", now)
	require.True(t, ok)
	assert.Equal(t, "UTC+09:00", label)

	label, ok = tenant.CoerceOffset("Asia/Tokyo", now)
	require.True(t, ok)
	assert.Equal(t, "UTC+09:00", label)

	label, ok = tenant.CoerceOffset("America/New_York", now)
	require.True(t, ok)
	assert.Equal(t, "UTC-04:00", label, "daylight saving in June")

	_, ok = tenant.CoerceOffset("InvalidZone", now)
	assert.False(t, ok)

	_, ok = tenant.CoerceOffset("Local", now)
	assert.False(t, ok)
}

func TestResolver_DefaultChain(t *testing.T) {
	r := tenant.NewResolver("")
	assert.Equal(t, tenant.FallbackTimezone, r.DefaultLabel())

	r = tenant.NewResolver("not a zone")
	assert.Equal(t, tenant.FallbackTimezone, r.DefaultLabel())

	r = tenant.NewResolver("UTC+01:00")
	assert.Equal(t, "UTC+01:00", r.DefaultLabel())

	r = tenant.NewResolver("UTC")
	assert.Equal(t, "UTC+00:00", r.DefaultLabel())

	// Invalid tenant values fall through to the resolver default.
	r = tenant.NewResolver("UTC+02:00")
	_, off := now.In(r.Location("UTC+99:00")).Zone()
	assert.Equal(t, 2*3600, off)
	_, off = now.In(r.Location("Asia/Kolkata")).Zone()
	assert.Equal(t, 5*3600+30*60, off)
	_, off = now.In(r.Location("UTC-03:00")).Zone()
	assert.Equal(t, -3*3600, off)
}

func TestValidateTimezone(t *testing.T) {
	label, err := tenant.ValidateTimezone("UTC-05:30", now)
	require.NoError(t, err)
	assert.Equal(t, "UTC-05:30", label)

	_, err = tenant.ValidateTimezone("InvalidZone", now)
	var ve *tenant.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "campaign_timezone", ve.Field)
	assert.ErrorIs(t, err, tenant.ErrInvalidConfig)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, tenant.English, tenant.NormalizeLanguage("EN"))
	assert.Equal(t, tenant.Japanese, tenant.NormalizeLanguage("fr"))
	assert.Equal(t, tenant.Japanese, tenant.NormalizeLanguage(""))

	l, err := tenant.ValidateLanguage("")
	require.NoError(t, err)
	assert.Equal(t, tenant.DefaultLanguage, l)

	_, err = tenant.ValidateLanguage("fr")
	assert.ErrorIs(t, err, tenant.ErrInvalidConfig)
}

func TestParseBoundary(t *testing.T) {
	jst, _ := tenant.ParseOffset("UTC+09:00")

	start := tenant.ParseBoundary("2024-06-01", false, jst)
	require.NotNil(t, start)
	assert.Equal(t, time.Date(2024, 5, 31, 15, 0, 0, 0, time.UTC), start.UTC())

	end := tenant.ParseBoundary("2024-06-30", true, jst)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2024, 6, 30, 14, 59, 59, 999999999, time.UTC), end.UTC())

	naive := tenant.ParseBoundary("2024-06-01T10:00:00", false, jst)
	require.NotNil(t, naive)
	assert.Equal(t, time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC), naive.UTC())

	aware := tenant.ParseBoundary("2024-06-01T10:00:00Z", false, jst)
	require.NotNil(t, aware)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), aware.UTC())
	assert.Equal(t, jst, aware.Location())

	offset := tenant.ParseBoundary("2024-06-01T10:00:00+02:00", false, jst)
	require.NotNil(t, offset)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), offset.UTC())

	assert.Nil(t, tenant.ParseBoundary("", false, jst))
	assert.Nil(t, tenant.ParseBoundary("next tuesday", true, jst))
}

func TestWindowCheck(t *testing.T) {
	jst, _ := tenant.ParseOffset("UTC+09:00")
	w := tenant.Window{
		Start: tenant.ParseBoundary("2024-06-01", false, jst),
		End:   tenant.ParseBoundary("2024-06-30", true, jst),
	}

	assert.Equal(t, tenant.WindowNotStarted, w.Check(time.Date(2024, 5, 31, 23, 59, 0, 0, jst)))
	assert.Equal(t, tenant.WindowOpen, w.Check(time.Date(2024, 6, 1, 0, 0, 0, 0, jst)))
	assert.Equal(t, tenant.WindowOpen, w.Check(time.Date(2024, 6, 30, 23, 59, 59, 0, jst)))
	assert.Equal(t, tenant.WindowEnded, w.Check(time.Date(2024, 7, 1, 0, 0, 0, 0, jst)))

	assert.Equal(t, tenant.WindowOpen, tenant.Window{}.Check(now), "unbounded window is always open")
}

func TestResolve_NormalizesDocument(t *testing.T) {
	r := tenant.NewResolver("")
	doc := tenant.ParseDocument([]byte(`{
		"tenantName": "Cafe Street",
		"campaign_timezone": "UTC+01:00",
		"language": "xx",
		"themeColor": "purple",
		"maxStampCount": "12",
		"campaignStart": "2024-06-01",
		"campaignEnd": "2024-06-30",
		"couponUsageStart": "2025-01-01"
	}`))

	cfg := r.Resolve("t1", "Company", doc, now)

	assert.Equal(t, "Cafe Street", cfg.Name)
	assert.Equal(t, "UTC+01:00", cfg.TimezoneLabel)
	assert.Equal(t, tenant.Japanese, cfg.Language)
	assert.Equal(t, "orange", cfg.Theme)
	require.NotNil(t, cfg.MaxStampCount)
	assert.Equal(t, 12, *cfg.MaxStampCount)
	require.NotNil(t, cfg.Campaign.Start)
	assert.Equal(t, time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC), cfg.Campaign.Start.UTC())

	// Campaign mode ignores the explicit usage bounds.
	assert.Equal(t, tenant.UsageCampaign, cfg.CouponUsageMode)
	assert.Equal(t, cfg.Campaign, cfg.CouponUsage)
	assert.Empty(t, cfg.CouponUsageStartRaw)
}

func TestResolve_CustomUsageWindow(t *testing.T) {
	r := tenant.NewResolver("")
	doc := tenant.ParseDocument([]byte(`{
		"campaignEnd": "2024-06-30",
		"couponUsageMode": "CUSTOM",
		"couponUsageStart": "2024-07-01",
		"couponUsageEnd": "2024-07-31"
	}`))

	cfg := r.Resolve("t1", "", doc, now)

	assert.Equal(t, tenant.UsageCustom, cfg.CouponUsageMode)
	assert.Equal(t, tenant.WindowNotStarted, cfg.CouponUsage.Check(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, tenant.WindowOpen, cfg.CouponUsage.Check(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)))
}

func TestResolve_InvalidDocument(t *testing.T) {
	r := tenant.NewResolver("")
	doc := tenant.ParseDocument([]byte(`{not json`))

	assert.False(t, doc.Valid())
	cfg := r.Resolve("t1", "Fallback Co", doc, now)
	assert.Equal(t, "Fallback Co", cfg.Name)
	assert.Equal(t, tenant.FallbackTimezone, cfg.TimezoneLabel)
	assert.Equal(t, tenant.WindowOpen, cfg.Campaign.Check(now))
}

func TestApply_CampaignUpdate(t *testing.T) {
	r := tenant.NewResolver("")
	doc := tenant.ParseDocument([]byte(`{"couponUsageMode":"custom","couponUsageStart":"2024-01-01","campaign_timezone":"Asia/Tokyo"}`))

	str := func(s string) *string { return &s }
	maxStamps := 10
	next, err := r.Apply(doc, tenant.CampaignUpdate{
		CampaignStart:   str("2024-06-01"),
		CampaignEnd:     str("2024-06-30"),
		ThemeColor:      str("Teal"),
		Language:        str("zh"),
		CouponUsageMode: str("campaign"),
		MaxStamps:       &maxStamps,
	}, now)
	require.NoError(t, err)

	cfg := r.Resolve("t1", "", next, now)
	assert.Equal(t, "teal", cfg.Theme)
	assert.Equal(t, tenant.Chinese, cfg.Language)
	assert.Equal(t, "UTC+09:00", cfg.TimezoneLabel)
	assert.Equal(t, tenant.UsageCampaign, cfg.CouponUsageMode)
	assert.Equal(t, "2024-06-01", cfg.CampaignStartRaw)
	require.NotNil(t, cfg.MaxStampCount)
	assert.Equal(t, 10, *cfg.MaxStampCount)
	assert.NotContains(t, string(next.Bytes()), "couponUsageStart")
}

func TestApply_Rejections(t *testing.T) {
	r := tenant.NewResolver("")
	str := func(s string) *string { return &s }
	tooMany := 201

	cases := map[string]tenant.CampaignUpdate{
		"theme":      {ThemeColor: str("purple")},
		"timezone":   {Timezone: str("UTC+15:00")},
		"language":   {Language: str("fr")},
		"usage mode": {CouponUsageMode: str("forever")},
		"max stamps": {MaxStamps: &tooMany},
		"bad date":   {CampaignStart: str("someday")},
		"reversed":   {CampaignStart: str("2024-07-01"), CampaignEnd: str("2024-06-01")},
	}
	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Apply(tenant.Document{}, u, now)
			assert.ErrorIs(t, err, tenant.ErrInvalidConfig)
		})
	}
}

func TestApply_EmptyTimezoneSelectsDefault(t *testing.T) {
	r := tenant.NewResolver("UTC+03:00")
	empty := ""

	next, err := r.Apply(tenant.Document{}, tenant.CampaignUpdate{Timezone: &empty}, now)
	require.NoError(t, err)
	assert.Equal(t, "UTC+03:00", r.Resolve("t1", "", next, now).TimezoneLabel)
}
