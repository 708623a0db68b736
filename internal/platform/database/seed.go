package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type SeedVillain struct {
	Name        string
	Location    string
	HP          int
	AttackPower int
	Difficulty  string
}

type SeedCase struct {
	Input    []any
	Expected any
}

type SeedChallenge struct {
	Title       string
	Description string
	Difficulty  string
	Snippet     string
	Solution    string
	Coins       int
	XP          int
	Cases       []SeedCase
}

type SeedReport struct {
	Villains   int
	Challenges int
}

var DefaultVillains = []SeedVillain{
	{"Glitch Goblin", "Kakiro's village", 150, 2, "Easy"},
	{"Syntax slug", "Kakiro's village", 160, 2, "Easy"},
	{"Typo Gremlin", "Kakiro's village", 140, 1, "Easy"},
	{"Debug Drone", "Kakiro's village", 135, 1, "Easy"},
	{"Lint Lurker", "Kakiro's village", 145, 2, "Easy"},
	{"HexaCipher", "Forest of Shadows", 200, 5, "Medium"},
	{"GlitchLord", "Forest of Shadows", 250, 6, "Medium"},
	{"CodeRuptor", "Forest of Shadows", 230, 4, "Medium"},
	{"BitPhantom", "Forest of Shadows", 235, 4, "Medium"},
	{"SyntaxSlinger", "Forest of Shadows", 222, 5, "Medium"},
	{"The Debugger", "Forest of Shadows", 215, 5, "Medium"},
	{"Malwareon", "Mountain of Eternity", 300, 7, "Hard"},
	{"DarkSector", "Mountain of Eternity", 315, 6, "Hard"},
	{"AbyssalNode", "Mountain of Eternity", 320, 7, "Hard"},
	{"PrimeChaos", "Mountain of Eternity", 300, 8, "Hard"},
	{"Overlord.DOS", "Mountain of Eternity", 350, 8, "Hard"},
}

var DefaultChallenges = []SeedChallenge{
	{
		Title:       "Sum of Two Numbers",
		Description: "Write a function that returns the sum of two numbers.",
		Difficulty:  "Easy",
		Snippet:     "function sum(a, b) {\n\n}",
		Solution:    "function sum(a, b) { return a + b; }",
		Coins:       5, XP: 10,
		Cases: []SeedCase{
			{[]any{1, 2}, 3},
			{[]any{5, 7}, 12},
			{[]any{-1, -1}, -2},
		},
	},
	{
		Title:       "Check Even or Odd",
		Description: "Write a function that checks if a number is even or odd.",
		Difficulty:  "Easy",
		Snippet:     "function isEven(n) {\n\n}",
		Solution:    "function isEven(n) { return n % 2 === 0; }",
		Coins:       5, XP: 10,
		Cases: []SeedCase{
			{[]any{2}, true},
			{[]any{3}, false},
			{[]any{0}, true},
			{[]any{-4}, true},
			{[]any{-7}, false},
		},
	},
	{
		Title:       "Convert Celsius to Fahrenheit",
		Description: "Write a function to convert Celsius to Fahrenheit.",
		Difficulty:  "Easy",
		Snippet:     "function celsiusToFahrenheit(c) {\n\n}",
		Solution:    "function celsiusToFahrenheit(c) { return (c * 9) / 5 + 32; }",
		Coins:       5, XP: 10,
		Cases: []SeedCase{
			{[]any{0}, 32},
			{[]any{100}, 212},
			{[]any{-40}, -40},
			{[]any{37}, 98.6},
			{[]any{25}, 77},
		},
	},
	{
		Title:       "Find the Largest Number",
		Description: "Write a function that returns the largest number in an array.",
		Difficulty:  "Medium",
		Snippet:     "function maxNumber(arr) {\n\n}",
		Solution:    "function maxNumber(arr) { return Math.max(...arr); }",
		Coins:       10, XP: 20,
		Cases: []SeedCase{
			{[]any{[]any{1, 2, 3, 4, 5}}, 5},
			{[]any{[]any{-10, -5, -1, -20}}, -1},
			{[]any{[]any{5}}, 5},
			{[]any{[]any{100, 50, 200, 150}}, 200},
			{[]any{[]any{0, -1, -2, -3}}, 0},
			{[]any{[]any{9, 9, 9, 9}}, 9},
		},
	},
	{
		Title:       "Reverse a String",
		Description: "Write a function that reverses a given string.",
		Difficulty:  "Medium",
		Snippet:     "function reverseString(str) {\n\n}",
		Solution:    "function reverseString(str) { return str.split('').reverse().join(''); }",
		Coins:       10, XP: 20,
		Cases: []SeedCase{
			{[]any{"hello"}, "olleh"},
			{[]any{"world"}, "dlrow"},
			{[]any{"racecar"}, "racecar"},
			{[]any{"12345"}, "54321"},
			{[]any{""}, ""},
			{[]any{"a"}, "a"},
			{[]any{"!@#$$#@!"}, "!@#$$#@!"},
		},
	},
	{
		Title:       "Find Factorial",
		Description: "Write a function to find the factorial of a number.",
		Difficulty:  "Medium",
		Snippet:     "function factorial(n) {\n\n}",
		Solution:    "function factorial(n) { return n <= 1 ? 1 : n * factorial(n - 1); }",
		Coins:       10, XP: 20,
		Cases: []SeedCase{
			{[]any{0}, 1},
			{[]any{1}, 1},
			{[]any{5}, 120},
			{[]any{7}, 5040},
			{[]any{10}, 3628800},
		},
	},
	{
		Title:       "Check for Palindrome",
		Description: "Write a function to check if a string is a palindrome.",
		Difficulty:  "Hard",
		Snippet:     "function isPalindrome(str) {\n\n}",
		Solution:    "function isPalindrome(str) { return str === str.split('').reverse().join(''); }",
		Coins:       20, XP: 50,
		Cases: []SeedCase{
			{[]any{"racecar"}, true},
			{[]any{"madam"}, true},
			{[]any{"hello"}, false},
			{[]any{"12321"}, true},
			{[]any{"123456"}, false},
			{[]any{""}, true},
			{[]any{"A man a plan a canal Panama"}, false},
			{[]any{"No lemon, no melon"}, false},
		},
	},
	{
		Title:       "Find Prime Numbers in a Range",
		Description: "Write a function that returns all prime numbers in a given range.",
		Difficulty:  "Hard",
		Snippet:     "function findPrimes(start, end) {\n\n}",
		Solution: `function findPrimes(start, end) {
  const primes = [];
  for (let i = start; i <= end; i++) {
    if (isPrime(i)) primes.push(i);
  }
  return primes;
}
function isPrime(n) {
  if (n < 2) return false;
  for (let i = 2; i <= Math.sqrt(n); i++) {
    if (n % i === 0) return false;
  }
  return true;
}`,
		Coins: 20, XP: 50,
		Cases: []SeedCase{
			{[]any{1, 10}, []any{2, 3, 5, 7}},
			{[]any{10, 20}, []any{11, 13, 17, 19}},
			{[]any{0, 1}, []any{}},
			{[]any{20, 30}, []any{23, 29}},
			{[]any{50, 60}, []any{53, 59}},
			{[]any{2, 2}, []any{2}},
			{[]any{14, 16}, []any{}},
		},
	},
	{
		Title:       "Fibonacci Sequence",
		Description: "Write a function to generate the first N Fibonacci numbers.",
		Difficulty:  "Hard",
		Snippet:     "function fibonacci(n) {\n\n}",
		Solution:    "function fibonacci(n) { const fib = []; for (let i = 0; i < n; i++) { fib.push(i < 2 ? i : fib[i - 1] + fib[i - 2]); } return fib; }",
		Coins:       20, XP: 50,
		Cases: []SeedCase{
			{[]any{1}, []any{0}},
			{[]any{2}, []any{0, 1}},
			{[]any{5}, []any{0, 1, 1, 2, 3}},
			{[]any{7}, []any{0, 1, 1, 2, 3, 5, 8}},
			{[]any{10}, []any{0, 1, 1, 2, 3, 5, 8, 13, 21, 34}},
			{[]any{0}, []any{}},
		},
	},
}

const (
	seedVillainSQL = `INSERT INTO villains (id, name, location, hp, attack_power, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (name) DO NOTHING`
	seedChallengeSQL = `INSERT INTO challenges (id, title, slug, description, difficulty, status, code_snippet, reward_currency, reward_experience)
		VALUES ($1, $2, $3, $4, $5, 'Published', $6, $7, $8) ON CONFLICT (slug) DO NOTHING RETURNING id`
	seedTestCaseSQL = `INSERT INTO challenge_test_cases (id, challenge_id, input, expected, sort_order)
		VALUES ($1, $2, $3, $4, $5)`
	seedSolutionSQL = `INSERT INTO challenge_solutions (id, challenge_id, code, status)
		VALUES ($1, $2, $3, 'approved')`
)

// Seed inserts the default villains and challenges. Rows that already exist
// are left untouched so it can be re-run safely.
func Seed(ctx context.Context, db *sql.DB) (SeedReport, error) {
	var report SeedReport
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, v := range DefaultVillains {
		res, err := tx.ExecContext(ctx, seedVillainSQL, uuid.NewString(), v.Name, v.Location, v.HP, v.AttackPower, v.Difficulty)
		if err != nil {
			return report, fmt.Errorf("seed villain %q: %w", v.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			report.Villains++
		}
	}

	for _, c := range DefaultChallenges {
		inserted, err := seedChallenge(ctx, tx, c)
		if err != nil {
			return report, fmt.Errorf("seed challenge %q: %w", c.Title, err)
		}
		if inserted {
			report.Challenges++
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("seed: commit: %w", err)
	}
	return report, nil
}

func seedChallenge(ctx context.Context, tx *sql.Tx, c SeedChallenge) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, seedChallengeSQL,
		uuid.NewString(), c.Title, slug.Make(c.Title), c.Description, c.Difficulty, c.Snippet, c.Coins, c.XP,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // already seeded
	}
	if err != nil {
		return false, err
	}

	for i, tc := range c.Cases {
		input, err := json.Marshal(tc.Input)
		if err != nil {
			return false, err
		}
		expected, err := json.Marshal(tc.Expected)
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, seedTestCaseSQL, uuid.NewString(), id, input, expected, i+1); err != nil {
			return false, err
		}
	}
	if _, err := tx.ExecContext(ctx, seedSolutionSQL, uuid.NewString(), id, c.Solution); err != nil {
		return false, err
	}
	return true, nil
}
