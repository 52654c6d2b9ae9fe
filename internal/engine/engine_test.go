package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xDub/figgie-tournament-testnet/internal/broadcast"
	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/0xDub/figgie-tournament-testnet/internal/ledger"
)

// --- Setup & Helpers --------------------------------------------------------

func newScenarioEngine(seed int64) *Engine {
	eng := New(500, 50, 200, broadcast.New(), seed)
	eng.RegisterPlayer("Alice")
	eng.RegisterPlayer("Bob")
	eng.commonSuit = card.Club
	eng.goalSuit = card.Spade
	eng.roundActive = true
	return eng
}

func buyOrder(player string, suit card.Suit, price int) card.Order {
	return card.Order{Player: player, Suit: suit, Direction: card.Buy, Price: &price}
}

func sellOrder(player string, suit card.Suit, price int) card.Order {
	return card.Order{Player: player, Suit: suit, Direction: card.Sell, Price: &price}
}

func cancelOrder(player string, suit card.Suit, direction card.Direction) card.Order {
	return card.Order{Player: player, Suit: suit, Direction: direction, Price: nil}
}

// --- End-to-end scenarios (spec.md §8) --------------------------------------

func TestScenario_RestingBidThenUncrossedAsk(t *testing.T) {
	eng := newScenarioEngine(1)

	status, _ := eng.ProcessOrder(buyOrder("Alice", card.Spade, 20))
	assert.Equal(t, card.StatusSuccess, status)

	bid, ok := eng.books[card.Spade].BestBid()
	require.True(t, ok)
	assert.Equal(t, 20, bid.Price)
	assert.Equal(t, "Alice", bid.Player)

	status, _ = eng.ProcessOrder(sellOrder("Bob", card.Spade, 30))
	assert.Equal(t, card.StatusSuccess, status)

	ask, ok := eng.books[card.Spade].BestAsk()
	require.True(t, ok)
	assert.Equal(t, 30, ask.Price)
	assert.Equal(t, "Bob", ask.Player)

	_, hasTrade := eng.books[card.Spade].LastTrade()
	assert.False(t, hasTrade)
}

func TestScenario_CrossingProducesTradeAtRestingPrice(t *testing.T) {
	eng := newScenarioEngine(1)
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 20))
	_, _ = eng.ProcessOrder(sellOrder("Bob", card.Spade, 30))

	status, msg := eng.ProcessOrder(buyOrder("Alice", card.Spade, 35))
	assert.Equal(t, card.StatusSuccess, status)
	assert.Equal(t, "spade,buy,35", msg)

	assert.Equal(t, 470, eng.ledg.Points("Alice"))
	assert.Equal(t, 4, eng.ledg.Inventory("Alice").Spades)
	assert.Equal(t, 530, eng.ledg.Points("Bob"))
	assert.Equal(t, 2, eng.ledg.Inventory("Bob").Spades)

	for _, s := range card.AllSuits() {
		assert.Empty(t, eng.books[s].Bids())
		assert.Empty(t, eng.books[s].Asks())
	}
	lastTrade, ok := eng.books[card.Spade].LastTrade()
	require.True(t, ok)
	assert.Equal(t, 30, lastTrade)
}

func TestScenario_SelfTradeRejected(t *testing.T) {
	eng := newScenarioEngine(1)
	_, _ = eng.ProcessOrder(sellOrder("Alice", card.Club, 10))

	pointsBefore := eng.ledg.Points("Alice")
	invBefore := eng.ledg.Inventory("Alice")

	status, _ := eng.ProcessOrder(buyOrder("Alice", card.Club, 15))
	assert.Equal(t, card.StatusSelfTrade, status)

	assert.Equal(t, pointsBefore, eng.ledg.Points("Alice"))
	assert.Equal(t, invBefore, eng.ledg.Inventory("Alice"))

	asks := eng.books[card.Club].Asks()
	require.Len(t, asks, 1)
	assert.Equal(t, 10, asks[0].Price)
	assert.Equal(t, "Alice", asks[0].Player)
}

func TestScenario_InsufficientFunds(t *testing.T) {
	eng := newScenarioEngine(1)
	eng.ledg.AddPoints("Alice", -495) // bring Alice to 5 points

	status, _ := eng.ProcessOrder(buyOrder("Alice", card.Heart, 50))
	assert.Equal(t, card.StatusInsufficientFunds, status)
}

func TestScenario_NoInventory(t *testing.T) {
	eng := newScenarioEngine(1)
	inv := eng.ledg.Inventory("Alice")
	inv.Diamonds = 0
	eng.ledg.SetInventory("Alice", inv)

	status, _ := eng.ProcessOrder(sellOrder("Alice", card.Diamond, 50))
	assert.Equal(t, card.StatusNoInventory, status)
}

func TestScenario_CancelNoOpIsSuccess(t *testing.T) {
	eng := newScenarioEngine(1)

	status, _ := eng.ProcessOrder(cancelOrder("Alice", card.Heart, card.Buy))
	assert.Equal(t, card.StatusSuccess, status)
	assert.Empty(t, eng.books[card.Heart].Bids())
}

// --- Invariants (spec.md §8) -------------------------------------------------

func TestNoNegativeInventory(t *testing.T) {
	eng := newScenarioEngine(2)
	rng := rand.New(rand.NewSource(42))
	suits := card.AllSuits()

	for i := 0; i < 500; i++ {
		player := "Alice"
		if i%2 == 0 {
			player = "Bob"
		}
		suit := suits[rng.Intn(len(suits))]
		price := 1 + rng.Intn(99)
		if rng.Intn(2) == 0 {
			eng.ProcessOrder(buyOrder(player, suit, price))
		} else {
			eng.ProcessOrder(sellOrder(player, suit, price))
		}

		for _, p := range []string{"Alice", "Bob"} {
			inv := eng.ledg.Inventory(p)
			assert.GreaterOrEqual(t, inv.Spades, 0)
			assert.GreaterOrEqual(t, inv.Clubs, 0)
			assert.GreaterOrEqual(t, inv.Diamonds, 0)
			assert.GreaterOrEqual(t, inv.Hearts, 0)
		}
	}
}

func TestCardConservationAcrossMatch(t *testing.T) {
	eng := newScenarioEngine(1)
	totalBefore := eng.ledg.Inventory("Alice").Count(card.Spade) + eng.ledg.Inventory("Bob").Count(card.Spade)

	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 20))
	_, _ = eng.ProcessOrder(sellOrder("Bob", card.Spade, 30))
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 35))

	totalAfter := eng.ledg.Inventory("Alice").Count(card.Spade) + eng.ledg.Inventory("Bob").Count(card.Spade)
	assert.Equal(t, totalBefore, totalAfter)
}

func TestPointsConservedAcrossMatch(t *testing.T) {
	eng := newScenarioEngine(1)
	totalBefore := eng.ledg.Points("Alice") + eng.ledg.Points("Bob")

	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 20))
	_, _ = eng.ProcessOrder(sellOrder("Bob", card.Spade, 30))
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 35))

	totalAfter := eng.ledg.Points("Alice") + eng.ledg.Points("Bob")
	assert.Equal(t, totalBefore, totalAfter)
}

func TestAtMostOneRestingQuotePerPlayerPerSide(t *testing.T) {
	eng := newScenarioEngine(1)
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Heart, 10))
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Heart, 20))
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Heart, 15))

	bids := eng.books[card.Heart].Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, 15, bids[0].Price)
}

func TestBestPriceOrdering(t *testing.T) {
	eng := newScenarioEngine(1)
	eng.RegisterPlayer("Carl")

	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Diamond, 10))
	_, _ = eng.ProcessOrder(buyOrder("Bob", card.Diamond, 20))
	_, _ = eng.ProcessOrder(buyOrder("Carl", card.Diamond, 15))

	bids := eng.books[card.Diamond].Bids()
	require.Len(t, bids, 3)
	assert.Equal(t, 20, bids[0].Price)
	assert.Equal(t, 15, bids[1].Price)
	assert.Equal(t, 10, bids[2].Price)
}

func TestAllBooksResetOnTrade(t *testing.T) {
	eng := newScenarioEngine(1)
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Club, 10))
	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Diamond, 10))
	_, _ = eng.ProcessOrder(sellOrder("Bob", card.Spade, 30))

	_, _ = eng.ProcessOrder(buyOrder("Alice", card.Spade, 35))

	assert.Empty(t, eng.books[card.Club].Bids())
	assert.Empty(t, eng.books[card.Diamond].Bids())
	assert.Empty(t, eng.books[card.Spade].Bids())
	assert.Empty(t, eng.books[card.Spade].Asks())

	_, hadTrade := eng.books[card.Club].LastTrade()
	assert.False(t, hadTrade)
}

func TestIdempotentCancel(t *testing.T) {
	eng := newScenarioEngine(1)
	status1, _ := eng.ProcessOrder(cancelOrder("Alice", card.Heart, card.Sell))
	status2, _ := eng.ProcessOrder(cancelOrder("Alice", card.Heart, card.Sell))
	assert.Equal(t, card.StatusSuccess, status1)
	assert.Equal(t, card.StatusSuccess, status2)
}

// --- Round lifecycle ----------------------------------------------------------

func TestStartRoundDealsFlatTestnetInventory(t *testing.T) {
	eng := New(500, 50, 200, broadcast.New(), 7)
	eng.RegisterPlayer("Alice")
	eng.RegisterPlayer("Bob")

	eng.StartRound(0)

	assert.Equal(t, ledger.Inventory{Spades: 3, Clubs: 3, Diamonds: 3, Hearts: 3}, eng.ledg.Inventory("Alice"))
	assert.Equal(t, 450, eng.ledg.Points("Alice")) // 500 starting balance - 50 ante
}

func TestStartRoundDistributionSumsTo40(t *testing.T) {
	eng := New(500, 50, 200, broadcast.New(), 99)
	eng.RegisterPlayer("Alice")

	for seed := int64(0); seed < 20; seed++ {
		eng.rng = rand.New(rand.NewSource(seed))
		eng.StartRound(0)

		total := 0
		for _, s := range card.AllSuits() {
			total += eng.startingInventory[s]
		}
		assert.Equal(t, 40, total)
		assert.Equal(t, 12, eng.startingInventory[eng.commonSuit])
		assert.Equal(t, eng.commonSuit.GoalSuit(), eng.goalSuit)
	}
}

func TestEndRoundUniqueWinnerTakesPot(t *testing.T) {
	eng := newScenarioEngine(1)
	eng.pot = 300

	aliceInv := eng.ledg.Inventory("Alice")
	aliceInv.Spades = 5 // goal suit is Spade
	eng.ledg.SetInventory("Alice", aliceInv)

	bobInv := eng.ledg.Inventory("Bob")
	bobInv.Spades = 1
	eng.ledg.SetInventory("Bob", bobInv)

	alicePointsBefore := eng.ledg.Points("Alice")
	eng.EndRound()

	wantAlice := alicePointsBefore + 10*5 + (300 - 10*5 - 10*1)
	assert.Equal(t, wantAlice, eng.ledg.Points("Alice"))
}

// TestEndRoundTieSplitsExcludeFirstWinner reproduces the reference
// payout loop's quirk exactly: players are walked in registration
// order, and only a player who *ties* an already-established max is
// added to the split. The first player to reach that max never joins
// the split and is paid nothing beyond their base goal-suit credit,
// even though they ended the round with the same holdings as the
// player who does get a share.
func TestEndRoundTieSplitsExcludeFirstWinner(t *testing.T) {
	eng := newScenarioEngine(1)
	eng.pot = 300

	for _, p := range []string{"Alice", "Bob"} {
		inv := eng.ledg.Inventory(p)
		inv.Spades = 2
		eng.ledg.SetInventory(p, inv)
	}

	aliceBefore := eng.ledg.Points("Alice")
	bobBefore := eng.ledg.Points("Bob")
	potAfterPayout := eng.pot - 10*2 - 10*2 // = 260

	eng.EndRound()

	share := potAfterPayout / 2 // Bob is the sole tied winner; divisor is len(tied)+1 = 2
	assert.Equal(t, aliceBefore+20, eng.ledg.Points("Alice"))
	assert.Equal(t, bobBefore+20+share, eng.ledg.Points("Bob"))
}

// TestEndRoundNoGoalCardsLeavesPotUnclaimed reproduces the reference
// implementation's sentinel bug: the running winner starts at count 0,
// so if every player holds zero goal-suit cards nobody ever strictly
// exceeds the sentinel and the pot is never paid out to anyone.
func TestEndRoundNoGoalCardsLeavesPotUnclaimed(t *testing.T) {
	eng := newScenarioEngine(1)
	eng.pot = 300

	for _, p := range []string{"Alice", "Bob"} {
		inv := eng.ledg.Inventory(p)
		inv.Spades = 0 // goal suit is Spade
		eng.ledg.SetInventory(p, inv)
	}

	aliceBefore := eng.ledg.Points("Alice")
	bobBefore := eng.ledg.Points("Bob")

	eng.EndRound()

	assert.Equal(t, aliceBefore, eng.ledg.Points("Alice"))
	assert.Equal(t, bobBefore, eng.ledg.Points("Bob"))
}
