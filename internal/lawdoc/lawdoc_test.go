package lawdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIdentifier_Valid(t *testing.T) {
	t.Parallel()

	id, err := ParseIdentifier("loi-2025-8")
	require.NoError(t, err)
	require.Equal(t, Identifier{Type: TypeLoi, Year: 2025, Number: 8}, id)
	require.Equal(t, "loi-2025-8", id.String())

	id, err = ParseIdentifier("decret-1998-431")
	require.NoError(t, err)
	require.Equal(t, Identifier{Type: TypeDecret, Year: 1998, Number: 431}, id)
}

func TestParseIdentifier_Invalid(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"loi-2025",
		"arrete-2025-8",
		"loi-abc-8",
		"loi-2025-x",
		"loi-2025-0",
		"loi-2025-8-extra",
	}
	for _, in := range cases {
		_, err := ParseIdentifier(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	id := Identifier{Type: TypeLoi, Year: 2025, Number: 7}
	require.Equal(t, "https://sgg.gouv.bj/doc/loi-2025-7/download",
		CanonicalURL("https://sgg.gouv.bj/doc", id))
	require.Equal(t, "https://sgg.gouv.bj/doc/loi-2025-7/download",
		CanonicalURL("https://sgg.gouv.bj/doc/", id))
}

func TestPaddedURL(t *testing.T) {
	t.Parallel()

	id := Identifier{Type: TypeLoi, Year: 2025, Number: 7}
	require.Equal(t, "https://sgg.gouv.bj/doc/loi-2025-07/download",
		PaddedURL("https://sgg.gouv.bj/doc", id, 2))

	id.Number = 42
	require.Equal(t, "https://sgg.gouv.bj/doc/loi-2025-042/download",
		PaddedURL("https://sgg.gouv.bj/doc", id, 3))
}

func TestNotFoundRange_TouchesAndString(t *testing.T) {
	t.Parallel()

	r := NotFoundRange{Type: TypeLoi, Year: 2025, NumberMin: 19, NumberMax: 300}
	require.True(t, r.Contains(19))
	require.True(t, r.Contains(300))
	require.False(t, r.Contains(18))

	require.True(t, r.Touches(18))
	require.True(t, r.Touches(301))
	require.False(t, r.Touches(17))
	require.False(t, r.Touches(302))

	require.Equal(t, "loi;2025;19-300", r.String())

	single := NotFoundRange{Type: TypeLoi, Year: 2025, NumberMin: 5, NumberMax: 5}
	require.Equal(t, "loi;2025;5", single.String())
}
