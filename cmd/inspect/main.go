package main

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	guestsOnly := flag.Bool("guests", false, "Only list guest users")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	users, err := repositories.NewUserRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn)).ListUsers()
	if err != nil {
		log.Fatal(err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Kind", "Login", "Email", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	guests := 0
	for _, user := range users {
		if user.IsGuest {
			guests++
		} else if *guestsOnly {
			continue
		}
		table.Append(toRow(user))
	}
	table.Render()

	fmt.Println(color.New(color.FgCyan).Render(
		fmt.Sprintf("%d users, %d guests", len(users), guests)))
}

// toRow colors guests so they stand out from registered accounts.
func toRow(user domain.User) []string {
	kind, login, email := color.FgYellow.Render("guest"), "", ""
	if user.Account != nil {
		kind = color.FgGreen.Render("account")
		login = user.Account.Login
		if user.Account.Email != nil {
			email = *user.Account.Email
		}
	}
	return []string{user.ID, user.Name, kind, login, email, user.CreatedAt.Format(time.DateTime)}
}
