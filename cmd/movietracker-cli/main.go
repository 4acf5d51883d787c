package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/core"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/session"
	"github.com/movie-tracker/movietracker-web/internal/view"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	// Library logging goes to stderr only when asked for.
	if os.Getenv("MOVIETRACKER_DEBUG") == "" {
		log.SetOutput(io.Discard)
	}

	app, err := core.New()
	if err != nil {
		fatalf("Failed to start: %v", err)
	}
	defer app.Close()
	ctx := app.Context()

	switch command {
	case "login":
		err = cmdLogin(ctx, app, args)
	case "register":
		err = cmdRegister(ctx, app, args)
	case "logout":
		err = app.Session().Logout()
		if err == nil {
			fmt.Println("Logged out.")
		}
	case "whoami":
		err = cmdWhoami(ctx, app)
	case "catalog":
		err = withSession(ctx, app, func() error { return cmdCatalog(ctx, app, args) })
	case "list":
		err = withSession(ctx, app, func() error { return cmdList(ctx, app, args) })
	case "show":
		err = withSession(ctx, app, func() error { return cmdShow(ctx, app, args) })
	case "add":
		err = withSession(ctx, app, func() error { return cmdAdd(ctx, app, args) })
	case "status":
		err = withSession(ctx, app, func() error { return cmdStatus(ctx, app, args) })
	case "favorite":
		err = withSession(ctx, app, func() error { return cmdFavorite(ctx, app, args) })
	case "rate":
		err = withSession(ctx, app, func() error { return cmdRate(ctx, app, args) })
	case "remove":
		err = withSession(ctx, app, func() error { return cmdRemove(ctx, app, args) })
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`movietracker-cli

Commands:
  login [-u username]                 Log in and store the session token
  register -name N -u U -email E      Create an account
  logout                              Forget the stored session
  whoami                              Show the logged-in profile
  catalog [-q term] [-pages n] [filters]
                                      Browse or search the catalog
  list [filters]                      Show the movies in your watchlist
  show <movie-id>                     Show one movie and your entry for it
  add <movie-id> [-status s]          Add a movie to your watchlist
  status <movie-id> <status>          Set the status ("unwatched" removes)
  favorite <movie-id>                 Toggle favorite
  rate <movie-id> <1-5|0>             Rate a movie (0 clears)
  remove <movie-id>                   Remove a movie from your watchlist

Filters:
  -status all|plan to watch|watching|watched|unwatched
  -favorites
  -sort alphabetical-asc|alphabetical-desc|rating-desc|rating-asc|year-desc|year-asc|status`)
}

func cmdLogin(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	fs.Parse(args)

	if *username == "" {
		*username = prompt("Username: ")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if err := app.Session().Login(ctx, *username, password); err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s!\n", app.Session().Profile().Name)
	return nil
}

func cmdRegister(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	var reg models.Registration
	fs.StringVar(&reg.Name, "name", "", "full name")
	fs.StringVar(&reg.Username, "u", "", "username")
	fs.StringVar(&reg.Email, "email", "", "email address")
	phone := fs.String("phone", "", "phone number (optional)")
	fs.Parse(args)
	if *phone != "" {
		reg.Phone = phone
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	reg.Password = password

	user, err := app.Session().Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Printf("Account %s created. Next: movietracker-cli login -u %s\n", user.Username, user.Username)
	return nil
}

func cmdWhoami(ctx context.Context, app *core.App) error {
	user, err := app.Session().Probe(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) <%s>\n", user.Name, user.Username, user.Email)
	return nil
}

// withSession runs fn only when the stored token is accepted.
func withSession(ctx context.Context, app *core.App, fn func() error) error {
	if _, err := app.Session().Probe(ctx); err != nil {
		if errors.Is(err, backend.ErrAuth) {
			return errors.New("please log in first: movietracker-cli login")
		}
		return err
	}
	return fn()
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) func() (view.Criteria, error) {
	status := fs.String("status", "all", "status filter")
	favorites := fs.Bool("favorites", false, "favorites only")
	sortOrder := fs.String("sort", "", "sort order")
	return func() (view.Criteria, error) {
		sf, err := view.ParseStatusFilter(*status)
		if err != nil {
			return view.Criteria{}, err
		}
		order, err := view.ParseSortOrder(*sortOrder)
		if err != nil {
			return view.Criteria{}, err
		}
		return view.Criteria{Status: sf, FavoritesOnly: *favorites, Sort: order}, nil
	}
}

func cmdCatalog(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	query := fs.String("q", "", "search term")
	pages := fs.Int("pages", 1, "pages to load")
	criteria := filterFlags(fs)
	fs.Parse(args)

	c, err := criteria()
	if err != nil {
		return err
	}
	c.Search = *query
	if !c.BlocksPaging() {
		if err := app.Pager().LoadPages(ctx, *query, *pages); err != nil {
			return err
		}
	}
	screen, err := app.Catalog(ctx, c)
	if err != nil {
		return err
	}
	printMovies(screen.Movies)
	fmt.Printf("\n%d shown, page %d of %d. %s\n", screen.Stats.Showing, screen.Pager.Page, screen.Pager.TotalPages, summary(screen.Stats))
	return nil
}

func cmdList(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("q", "", "title filter")
	criteria := filterFlags(fs)
	fs.Parse(args)

	c, err := criteria()
	if err != nil {
		return err
	}
	c.Search = *query
	screen, err := app.MyMovies(ctx, c)
	if err != nil {
		return err
	}
	if len(screen.Movies) == 0 {
		fmt.Println("Nothing here yet. Try: movietracker-cli catalog")
		return nil
	}
	printMovies(screen.Movies)
	fmt.Printf("\n%s\n", summary(screen.Stats))
	return nil
}

func cmdShow(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	jm, err := app.MovieDetails(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", displayTitle(*jm), jm.Year)
	if jm.Tagline != "" {
		fmt.Printf("  %s\n", jm.Tagline)
	}
	if len(jm.Genre) > 0 {
		fmt.Printf("  Genre:    %s\n", strings.Join(jm.Genre, ", "))
	}
	if jm.Duration != "" {
		fmt.Printf("  Duration: %s\n", jm.Duration)
	}
	fmt.Printf("  Poster:   %s\n", models.ImageURL(jm.PosterPath))
	if jm.Description != "" {
		fmt.Printf("\n%s\n", jm.Description)
	}
	fmt.Println()
	if jm.Entry == nil {
		fmt.Printf("Not in your watchlist. Add it: movietracker-cli add %d\n", jm.ID)
		return nil
	}
	fmt.Printf("Status:   %s\n", jm.Entry.Status)
	fmt.Printf("Favorite: %t\n", jm.Entry.Favorite)
	if r := jm.Entry.RatingValue(); r > 0 {
		fmt.Printf("Rating:   %s\n", stars(r))
	}
	if c := jm.Entry.CommentText(); c != "" {
		fmt.Printf("Comment:  %s\n", c)
	}
	return nil
}

func cmdAdd(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	status := fs.String("status", string(models.StatusPlanToWatch), "initial status")
	favorite := fs.Bool("favorite", false, "mark as favorite")
	comment := fs.String("comment", "", "comment")
	rating := fs.Int("rating", 0, "rating 1-5")
	fs.Parse(args[1:])

	s, err := models.ParseStatus(*status)
	if err != nil {
		return err
	}
	entry, err := app.Watchlist().Add(ctx, id, models.EntryFields{
		Status:   s,
		Favorite: *favorite,
		Comment:  models.StringPtr(*comment),
		Rating:   models.IntPtr(*rating),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added movie %d as %q.\n", entry.MovieID, entry.Status)
	return nil
}

func cmdStatus(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("usage: movietracker-cli status <movie-id> <status>")
	}
	s, err := models.ParseStatus(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	entry, err := app.Watchlist().SetStatusForMovie(ctx, id, s)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Printf("Movie %d is not in your watchlist.\n", id)
		return nil
	}
	fmt.Printf("Movie %d is now %q.\n", id, entry.Status)
	return nil
}

func cmdFavorite(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	entry, err := app.Watchlist().ToggleFavoriteForMovie(ctx, id)
	if err != nil {
		return err
	}
	if entry.Favorite {
		fmt.Printf("Movie %d marked as favorite.\n", id)
	} else {
		fmt.Printf("Movie %d is no longer a favorite.\n", id)
	}
	return nil
}

func cmdRate(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("usage: movietracker-cli rate <movie-id> <1-5|0>")
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}
	current, err := app.Watchlist().EntryForMovie(ctx, id)
	if err != nil {
		return err
	}
	entry, err := app.Watchlist().UpdateRating(ctx, current.ID, models.IntPtr(rating))
	if err != nil {
		return err
	}
	if entry.Rating == nil {
		fmt.Printf("Rating cleared for movie %d.\n", id)
		return nil
	}
	fmt.Printf("Movie %d rated %s.\n", id, stars(*entry.Rating))
	return nil
}

func cmdRemove(ctx context.Context, app *core.App, args []string) error {
	id, err := movieArg(args)
	if err != nil {
		return err
	}
	entry, err := app.Watchlist().EntryForMovie(ctx, id)
	if err != nil {
		return err
	}
	if err := app.Watchlist().Remove(ctx, entry.ID); err != nil {
		return err
	}
	fmt.Printf("Removed movie %d from your watchlist.\n", id)
	return nil
}

func printMovies(movies []models.JoinedMovie) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tYEAR\tSTATUS\tFAV\tRATING")
	for _, jm := range movies {
		fav, rating := "", ""
		if jm.IsFavorite() {
			fav = "*"
		}
		if jm.Entry != nil && jm.Entry.Rating != nil {
			rating = stars(*jm.Entry.Rating)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", jm.ID, displayTitle(jm), jm.Year, jm.EffectiveStatus(), fav, rating)
	}
	w.Flush()
}

func displayTitle(jm models.JoinedMovie) string {
	if jm.IsPlaceholder() {
		return fmt.Sprintf("(movie %d)", jm.ID)
	}
	return jm.Title
}

func summary(s models.Stats) string {
	return fmt.Sprintf("Watchlist: %d (%d watched, %d watching, %d planned, %d favorites)",
		s.InWatchlist, s.Watched, s.Watching, s.PlanToWatch, s.Favorites)
}

func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxRating-n)
}

func movieArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("a movie id is required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", args[0])
	}
	return id, nil
}

func prompt(label string) string {
	fmt.Print(label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword reads without echo on a terminal, and a plain line otherwise.
func readPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label), nil
	}
	fmt.Print(label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func reportError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	for field, problem := range backend.FieldErrors(err) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", field, problem)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
