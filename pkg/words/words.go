// Package words generates human-typeable pairing secrets: short dictionary
// words drawn with crypto/rand from a fixed 256-word list, so each word
// contributes 8 bits of entropy (64 bits for the default 8-word secret).
package words

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const Separator = "-"

// 256 entries, all lowercase, short and concrete so they survive being read
// aloud over a phone.
var list = strings.Fields(`
acid acorn actor adobe agent aisle alarm album alert alley amber angle ankle
antic apple apron arrow atlas attic audio autumn badge bagel baker bamboo
banjo barn basil beach beacon beetle bell bench berry bingo birch bishop
bison blade blanket blaze blimp bloom bluff board bonus booth border botany
bottle boulder bounce bravo bread breeze brick bridge broom brush bubble
bucket buffalo bugle bundle bunker burlap butter cabin cactus camera canal
candle canoe canyon carbon cargo carpet castle cedar cello census chalk
chapel cherry chess chime chorus cider cinema circus citrus clay cliff
clover cobalt coconut comet compass copper coral cotton cougar cradle
crater crayon cricket crystal cypress daisy dapper debris decoy delta
denim depot derby diesel dilute dinghy dome domino donor dragon drum
dune eagle easel echo eclipse elbow elder ember engine envoy ethos fable
falcon fedora fennel ferry fiddle finch fjord flame flint flora foam forge
fossil fresco frost gadget galaxy garlic gazebo gecko geyser ginger glacier
glade globe goose gourd granite grove guitar gumbo gusto hammock harbor
hazel helium heron hickory hinge holly hummus husk igloo indigo ingot iris
ivory jaguar jasmine jetty jigsaw jovial jungle juniper kayak kelp kiosk
kite koala lagoon lantern larch latch lava lemon lentil lilac lotus lumber
lynx macaw magnet mango maple marble meadow mesa mimic mocha molar moose
mosaic moss mural myrtle nectar nimbus nutmeg oasis ocean olive onyx opal
orbit orchid otter oxbow pagoda palm panda papaya parka pebble pecan pepper
petal pier pigeon pine pivot plaza plume polar pond poppy prism pumice
quartz quill radish
`)

func init() {
	if len(list) != 256 {
		panic(fmt.Sprintf("words: list has %d entries, want 256", len(list)))
	}
}

// Secret returns n words joined by Separator.
func Secret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	picked := make([]string, n)
	for i, b := range buf {
		picked[i] = list[b]
	}

	return strings.Join(picked, Separator), nil
}

// Contains reports whether w is on the list. Exposed for tests and client
// input normalization.
func Contains(w string) bool {
	for _, candidate := range list {
		if candidate == w {
			return true
		}
	}
	return false
}
