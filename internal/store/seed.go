package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/auth"
	"github.com/dukerupert/daybreak/internal/model"
)

// SeedResult reports what Seed created or found.
type SeedResult struct {
	GroupID int64
	Users   map[string]int64 // email -> user id
}

type seedUser struct {
	email, name string
}

var seedUsers = []seedUser{
	{"you@daybreak.test", "You"},
	{"alice@daybreak.test", "Alice"},
	{"bob@daybreak.test", "Bob"},
}

var seedPassages = []struct {
	title, ref, text, prayer string
}{
	{"New Every Morning", "Lamentations 3:22-23", "His mercies never come to an end; they are new every morning.", "Thank God for one new mercy today."},
	{"Be Still", "Psalm 46:10", "Be still, and know that I am God.", "Sit quietly for a minute before you pray."},
	{"Daily Bread", "Matthew 6:11", "Give us this day our daily bread.", "Ask for what you need today, and only today."},
	{"A Lamp", "Psalm 119:105", "Your word is a lamp to my feet and a light to my path.", "Pray for the next step in front of you."},
	{"Rest", "Matthew 11:28", "Come to me, all who labor and are heavy laden, and I will give you rest.", "Name a burden and hand it over."},
	{"Abide", "John 15:4", "Abide in me, and I in you.", "Pray for someone in your group by name."},
	{"Joy", "Nehemiah 8:10", "The joy of the Lord is your strength.", "Give thanks for three things."},
}

// Seed creates a demo group with three members and a week of devotionals
// centred on today. Running it again reuses what already exists.
func Seed(db *sql.DB, today model.Date, password string) (*SeedResult, error) {
	users := NewUserStore(db)
	groups := NewGroupStore(db)
	devotionals := NewDevotionalStore(db)
	completions := NewCompletionStore(db)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	res := &SeedResult{Users: make(map[string]int64)}
	for _, su := range seedUsers {
		u, err := users.GetByEmail(su.email)
		if err != nil {
			return nil, err
		}
		if u == nil {
			if u, err = users.Create(su.email, su.name, hash); err != nil {
				return nil, fmt.Errorf("seed user %s: %w", su.email, err)
			}
		}
		res.Users[su.email] = u.ID
	}

	existing, err := groups.ListForUser(res.Users[seedUsers[0].email])
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		res.GroupID = existing[0].ID
	} else {
		g, err := groups.Create("Morning Light")
		if err != nil {
			return nil, fmt.Errorf("seed group: %w", err)
		}
		res.GroupID = g.ID
	}
	for i, su := range seedUsers {
		role := "member"
		if i == 0 {
			role = "admin"
		}
		if _, err := groups.AddMember(res.GroupID, res.Users[su.email], role, ""); err != nil {
			return nil, fmt.Errorf("seed member %s: %w", su.email, err)
		}
	}

	for i, p := range seedPassages {
		d := today.AddDays(i - 3)
		_, err := devotionals.Upsert(model.DevotionalContent{
			Date:           d,
			Title:          p.title,
			ScriptureRef:   p.ref,
			ScriptureText:  p.text,
			Body:           fmt.Sprintf("Read %s slowly, twice. What word stays with you?", p.ref),
			PrayerPrompt:   p.prayer,
			ReadingMinutes: 5,
		})
		if err != nil {
			return nil, fmt.Errorf("seed devotional %s: %w", d, err)
		}
	}

	// Alice has finished today; Bob has started.
	alice, bob := res.Users["alice@daybreak.test"], res.Users["bob@daybreak.test"]
	done := true
	if _, _, err := completions.Upsert(alice, res.GroupID, today, model.CompletionUpdate{Scripture: &done, Devotional: &done, Prayer: &done}); err != nil {
		return nil, fmt.Errorf("seed completion: %w", err)
	}
	if _, _, err := completions.Upsert(bob, res.GroupID, today, model.ScriptureDone); err != nil {
		return nil, fmt.Errorf("seed completion: %w", err)
	}

	return res, nil
}
