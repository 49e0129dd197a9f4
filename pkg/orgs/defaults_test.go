package orgs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings, pages, err := LoadDefaults()
	require.NoError(t, err)

	assert.NotEmpty(t, settings.Language.Tenants)
	assert.NotEmpty(t, settings.Language.Properties)
	assert.NotEmpty(t, settings.Language.Tenancies)
	assert.NotEmpty(t, pages)
}

func TestMergeSettings(t *testing.T) {
	defaults, _, err := LoadDefaults()
	require.NoError(t, err)

	merged := MergeSettings(defaults, LanguagePreferences{Tenants: "Guests"})
	assert.Equal(t, "Guests", merged.Language.Tenants)
	assert.Equal(t, defaults.Language.Properties, merged.Language.Properties)
	assert.Equal(t, defaults.Language.Tenancies, merged.Language.Tenancies)

	// Empty preferences keep everything.
	merged = MergeSettings(defaults, LanguagePreferences{})
	assert.Equal(t, defaults, merged)
}

func TestMergePages(t *testing.T) {
	defaults := []OrgPage{
		{Label: "dashboard", IsEnabled: true},
		{Label: "reports", IsEnabled: true},
	}

	t.Run("no overrides", func(t *testing.T) {
		merged := MergePages(defaults, nil)
		assert.Equal(t, defaults, merged)
	})

	t.Run("override by label", func(t *testing.T) {
		merged := MergePages(defaults, []OrgPage{{Label: "reports", IsEnabled: false}})
		require.Len(t, merged, 2)
		assert.Equal(t, "dashboard", merged[0].Label)
		assert.True(t, merged[0].IsEnabled)
		assert.Equal(t, "reports", merged[1].Label)
		assert.False(t, merged[1].IsEnabled)
	})

	t.Run("unknown labels appended", func(t *testing.T) {
		merged := MergePages(defaults, []OrgPage{{Label: "maintenance", IsEnabled: true}})
		require.Len(t, merged, 3)
		assert.Equal(t, "maintenance", merged[2].Label)
	})
}

func TestNormalizeOrgName(t *testing.T) {
	assert.Equal(t, "Acme Lettings_org", NormalizeOrgName("Acme Lettings"))
	assert.Equal(t, "_org", NormalizeOrgName(""))
}

func TestOrgDisplayName(t *testing.T) {
	assert.Equal(t, "Acme", (&Org{CleanName: "Acme", CompanyName: "Acme Ltd"}).DisplayName())
	assert.Equal(t, "Acme Ltd", (&Org{CompanyName: "Acme Ltd"}).DisplayName())
	assert.Equal(t, "Customer", (&Org{}).DisplayName())
}

func TestPaymentScheduleIsCustom(t *testing.T) {
	var nilSchedule *PaymentSchedule
	assert.False(t, nilSchedule.IsCustom())
	assert.False(t, (&PaymentSchedule{PlanType: PlanTypeNormal}).IsCustom())
	assert.True(t, (&PaymentSchedule{PlanType: PlanTypeCustom}).IsCustom())
}
