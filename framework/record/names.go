package record

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var firstNames = []string{
	"Ada", "Alan", "Barbara", "Charles", "Dennis", "Edsger", "Frances", "Grace",
	"Hedy", "Ivan", "Jean", "Ken", "Katherine", "Linus", "Margaret", "Niklaus",
	"Radia", "Shafi", "Tim", "Whitfield",
}

var lastNames = []string{
	"Allen", "Babbage", "Berners", "Dijkstra", "Goldwasser", "Hamilton", "Hopper",
	"Johnson", "Kernighan", "Lamarr", "Liskov", "Lovelace", "Perlman", "Ritchie",
	"Sammet", "Sutherland", "Thompson", "Torvalds", "Turing", "Wirth",
}

var (
	entropyMu sync.Mutex
	rnd       = rand.New(rand.NewSource(time.Now().UnixNano()))
	entropy   = ulid.Monotonic(rnd, 0)
)

// RandomFirstName returns a first name picked at random
func RandomFirstName() string {
	return pick(firstNames)
}

// RandomLastName returns a last name picked at random
func RandomLastName() string {
	return pick(lastNames)
}

// UniqueToken returns a lexically sortable token that is unique within the
// process and practically unique across parallel runs.
func UniqueToken() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// UnixTimestamp returns the current time in whole seconds, as text
func UnixTimestamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// GenericEmail is the address given to generated contacts
func GenericEmail(firstName, lastName string) string {
	return firstName + lastName + "@example.com"
}

func pick(names []string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return names[rnd.Intn(len(names))]
}

func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}
