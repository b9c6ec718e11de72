package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iliyamo/table-reservation/internal/app"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/store"
)

var errUsage = errors.New("usage")

type command struct {
	help string
	run  func(ctx context.Context, a *app.App, args []string, out io.Writer) error
}

var commands = map[string]command{
	"signin":       {"sign in with -email and -password", signIn},
	"signup":       {"create an account (-email -password -name -phone)", signUp},
	"signout":      {"end the session", signOut},
	"whoami":       {"show the signed-in profile", whoAmI},
	"profile":      {"update -name and/or -phone", updateProfile},
	"passwd":       {"change password with -password", changePassword},
	"restaurants":  {"list restaurants, filtered by -q and -cuisine", listRestaurants},
	"restaurant":   {"show one restaurant by -id", showRestaurant},
	"cuisines":     {"list cuisines", listCuisines},
	"reserve":      {"book a table (-restaurant -date -time -party -note)", reserve},
	"reservations": {"list your reservations by category", listReservations},
	"cancel":       {"cancel reservation -id", cancelReservation},
}

func usage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "usage: client <command> [flags]")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\t%s\n", n, commands[n].help)
	}
	_ = w.Flush()
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func signIn(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("signin", out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Identity.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	st := a.Identity.Snapshot()
	name := *email
	if st.Profile != nil && st.Profile.FullName != "" {
		name = st.Profile.FullName
	}
	fmt.Fprintf(out, "signed in as %s\n", name)
	return nil
}

func signUp(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("signup", out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "at least 6 characters")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fields := model.ProfileFields{FullName: *name, Phone: *phone, Email: *email}
	if err := a.Identity.SignUp(ctx, *email, *password, fields); err != nil {
		return err
	}
	fmt.Fprintf(out, "account created for %s\n", *email)
	return nil
}

func signOut(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	err := a.Identity.SignOut(ctx)
	fmt.Fprintln(out, "signed out")
	return err
}

func whoAmI(_ context.Context, a *app.App, _ []string, out io.Writer) error {
	st := a.Identity.Snapshot()
	if st.Session == nil {
		return app.ErrSignedOut
	}
	if st.Profile == nil {
		fmt.Fprintf(out, "user %s (no profile)\n", st.Session.UserID())
		return nil
	}
	p := st.Profile
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\nEmail\t%s\nPhone\t%s\nRole\t%s\nMember since\t%s\n",
		p.FullName, p.Email, p.Phone, p.Role, p.CreatedAt.Format("January 2, 2006"))
	return w.Flush()
}

func updateProfile(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	st := a.Identity.Snapshot()
	if st.Session == nil {
		return app.ErrSignedOut
	}
	var name, phone string
	if st.Profile != nil {
		name, phone = st.Profile.FullName, st.Profile.Phone
	}
	fs := newFlags("profile", out)
	fs.StringVar(&name, "name", name, "full name")
	fs.StringVar(&phone, "phone", phone, "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Identity.UpdateProfile(ctx, name, phone); err != nil {
		return err
	}
	fmt.Fprintln(out, "profile updated")
	return nil
}

func changePassword(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("passwd", out)
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Identity.ChangePassword(ctx, *password); err != nil {
		return err
	}
	fmt.Fprintln(out, "password changed")
	return nil
}

func listRestaurants(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("restaurants", out)
	query := fs.String("q", "", "text to find in name or description")
	cuisine := fs.String("cuisine", "", "exact cuisine")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Catalog.FetchAll(ctx); err != nil {
		return err
	}
	a.Catalog.Search(*query, *cuisine)
	list := a.Catalog.Snapshot().Filtered
	if len(list) == 0 {
		fmt.Fprintln(out, "no restaurants found")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCUISINE\tADDRESS")
	for _, r := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Cuisine, r.Address)
	}
	return w.Flush()
}

func showRestaurant(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("restaurant", out)
	id := fs.Uint64("id", 0, "restaurant id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Catalog.FetchByID(ctx, *id); err != nil {
		return err
	}
	r := a.Catalog.Snapshot().Current
	if r == nil {
		return errors.New("restaurant not found")
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t(%s)\n%s\n\nAddress\t%s\nPhone\t%s\nHours\t%02d:00 - %02d:00\n",
		r.Name, r.Cuisine, r.Description, r.Address, r.Phone, r.OpeningHour, r.ClosingHour)
	return w.Flush()
}

func listCuisines(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if err := a.Catalog.FetchAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(a.Catalog.Cuisines(), "\n"))
	return nil
}

func reserve(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("reserve", out)
	restaurant := fs.Uint64("restaurant", 0, "restaurant id")
	date := fs.String("date", "", "YYYY-MM-DD")
	tod := fs.String("time", "", "HH:MM")
	party := fs.Int("party", 2, "party size")
	note := fs.String("note", "", "special requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d := model.ReservationDraft{RestaurantID: *restaurant, Date: *date, Time: *tod, PartySize: *party}
	if *note != "" {
		d.SpecialRequests = note
	}
	if err := a.Book(ctx, d); err != nil {
		return err
	}
	fmt.Fprintln(out, "reservation requested; it is pending confirmation")
	return nil
}

func listReservations(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	p, err := a.MyReservations(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range []store.Category{store.CategoryUpcoming, store.CategoryPast, store.CategoryCancelled} {
		list := p.Of(c)
		fmt.Fprintf(w, "%s (%d)\n", strings.ToUpper(string(c)), len(list))
		for _, r := range list {
			name := fmt.Sprintf("restaurant %d", r.RestaurantID)
			if r.Restaurant != nil {
				name = r.Restaurant.Name
			}
			fmt.Fprintf(w, "  #%d\t%s\t%s %s\t%d guests\t%s\n", r.ID, name, r.Date, r.Time, r.PartySize, store.Badge(r, now))
		}
	}
	return w.Flush()
}

func cancelReservation(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("cancel", out)
	id := fs.Uint64("id", 0, "reservation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.UserID(); err != nil {
		return err
	}
	if err := a.Reservations.Cancel(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(out, "reservation #%d cancelled\n", *id)
	return nil
}
