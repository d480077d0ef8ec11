package crypto

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseInt(t testing.TB, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "invalid number %q", s)
	return v
}

var modPowTests = []struct {
	base, exponent, modulus, result string
}{
	{"4", "13", "497", "445"},
	{
		"95097065754048712493019462230827768523616324208853691743435754128633565197368",
		"24860351219264002510127502876930881678393989031736188690584879294552619323435",
		"63806912798634571738808025034475386892157271856625203989141421814633861828825",
		"34799916788015659031617122548288651002289303560222270629609553046581937902957",
	},
	{
		"664883980431147950309591874411873139370421921193615847710832881421865858432118644092115225279717819457517282442767327410140767467771201216976197493017126",
		"9144161185990377371972742767573012328303244350985954542017076076342954857633666300252959704019074743035461536631850120794406783451351917500864708259601100",
		"13359734114253166056308559143915039371738261427268133801795407789664772289565992062203311744951916711586324284148631260536002011979162932580402212551005579",
		"229700666140648574657364201884604671406621566023915157549419963508573484337754229012966453136995253871478151743145538346528736137001533076213907455861519",
	},
	{
		"92029814133449702909533594895191877142524646748838331106782914240522772911364424798486173844997723905871621413462945184820711354777323392783239967341291776410854846780643802280649409672163912778793001392299605454884281086756831190470184943667925647052670252585111666540271785234103099181365172434447973134676",
		"48526797978686987153310215668794098517481665775218100615992313204790287309277502382188914662937326762645823693318252301910950575708812904733872872571101674200172337573159788547373114577700298572141636880010992111423485505630369060799974128077803277845503940396764918083567571402502052149665012392809787431144",
		"141556097749154837637839259986603573619306377552922426166912943068303801026384176134531544054402569674456042026784828578944958991047378180106142708263880726812015683345655617600077721024825710520910237639297977604623061023876526393113770262415109737860491743262757889157343358808592606150772961131417726517801",
		"15648288698979993874491306151606923558928280512949837984288787409903541725017802853297459227237880454358596999718666865177949239811179980423779834637031770598451552345826078091944573211079472378842285708896954214620150623286751921764301167455882104034964098764762972157330883470930771584729155163712198841621",
	},
}

func TestModPowFixtures(t *testing.T) {
	for i, test := range modPowTests {
		r, err := ModPow(parseInt(t, test.base), parseInt(t, test.exponent), parseInt(t, test.modulus))
		require.NoError(t, err, "test %d", i)
		assert.Equal(t, test.result, r.String(), "test %d", i)
	}
}

func TestModPowEdgeCases(t *testing.T) {
	b := big.NewInt(12345)

	r, err := ModPow(b, big.NewInt(0), big.NewInt(97))
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Int64())

	r, err = ModPow(b, big.NewInt(77), big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Int64())

	_, err = ModPow(b, big.NewInt(3), big.NewInt(0))
	assert.Error(t, err)

	_, err = ModPow(b, big.NewInt(-3), big.NewInt(97))
	assert.Error(t, err)

	r, err = ModPow(big.NewInt(-2), big.NewInt(3), big.NewInt(97))
	require.NoError(t, err)
	assert.Equal(t, int64(89), r.Int64())
}

func TestModPowMersenne(t *testing.T) {
	m := new(big.Int).Lsh(big.NewInt(1), 521)
	m.Sub(m, big.NewInt(1))

	r, err := ModPow(big.NewInt(3), new(big.Int).Sub(m, big.NewInt(1)), m)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Int64())

	r, err = ModPow(big.NewInt(2), big.NewInt(521), m)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Int64())
}

func TestModPowMatchesExp(t *testing.T) {
	rnd := rand.New(rand.NewSource(23))
	limit := new(big.Int).Lsh(big.NewInt(1), 512)

	for i := 0; i < 50; i++ {
		b := new(big.Int).Rand(rnd, limit)
		e := new(big.Int).Rand(rnd, limit)
		m := new(big.Int).Rand(rnd, limit)
		m.Add(m, big.NewInt(2))

		r, err := ModPow(b, e, m)
		require.NoError(t, err)
		want := new(big.Int).Exp(b, e, m)
		assert.Zero(t, want.Cmp(r), "round %d: %v != %v", i, r, want)
	}
}

func TestRSAKeyRoundTrip(t *testing.T) {
	// textbook key: p = 61, q = 53
	pub, err := ParseRSAKey("17", "3233")
	require.NoError(t, err)
	priv, err := ParseRSAKey("2753", "3233")
	require.NoError(t, err)

	enc, err := pub.Apply([]byte{0x41})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xe6}, enc)

	dec, err := priv.Apply(enc)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41}, dec)

	_, err = ParseRSAKey("x", "3233")
	assert.Error(t, err)
}
