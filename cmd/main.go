package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/cmd/utils"
	"github.com/phamvanchien/social-web/db"
	"github.com/phamvanchien/social-web/service/feed"
	"github.com/phamvanchien/social-web/service/likes"
	"github.com/phamvanchien/social-web/service/profile"
	"github.com/phamvanchien/social-web/service/realtime"
	"github.com/phamvanchien/social-web/service/session"
	"github.com/phamvanchien/social-web/service/thread"
	"github.com/phamvanchien/social-web/service/transport"
)

type app struct {
	sessions *session.Store
	api      *transport.Client
	wsURL    string
	color    bool
}

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		return
	}

	a, err := newApp()
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}

	switch os.Args[1] {
	case "login":
		a.runLogin(os.Args[2:])
	case "logout":
		a.runLogout()
	case "feed":
		a.runFeed(os.Args[2:])
	case "post":
		a.runPost(os.Args[2:])
	case "watch":
		a.runWatch(os.Args[2:])
	case "comment":
		a.runComment(os.Args[2:])
	case "profile":
		a.runProfile()
	case "location":
		a.runLocation(os.Args[2:])
	case "provinces":
		a.runProvinces()
	case "wards":
		a.runWards(os.Args[2:])
	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}

func usage() {
	fmt.Println("Usage: social-web <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login <email>            log in (password prompted)")
	fmt.Println("  logout                   clear the stored session")
	fmt.Println("  feed [keyword]           show the feed")
	fmt.Println("  post <content> [file..]  publish a post with optional media")
	fmt.Println("  watch <post-id>          follow a post's comments live")
	fmt.Println("  comment <post-id> <text> comment on a post")
	fmt.Println("  profile                  show your profile and posts")
	fmt.Println("  location <lat> <long>    store your coordinates")
	fmt.Println("  provinces                list provinces")
	fmt.Println("  wards <province-id>      list wards in a province")
}

func newApp() (*app, error) {
	storage, err := db.NewLocalStorage(os.Getenv("STORE_PATH"))
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewStore(storage)
	if err != nil {
		return nil, err
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	wsURL := os.Getenv("WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}

	return &app{
		sessions: sessions,
		api:      transport.NewClient(apiURL, sessions.Token),
		wsURL:    wsURL,
		color:    isatty.IsTerminal(os.Stdout.Fd()),
	}, nil
}

func (a *app) requireSession() *models.Session {
	sess, err := a.sessions.Current()
	if err != nil {
		log.Fatal("Not logged in. Run: social-web login <email>")
	}
	return sess
}

func (a *app) runLogin(args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: social-web login <email>")
	}
	email := args[0]

	fmt.Print("Password: ")
	var password string
	fmt.Scanln(&password)

	user, token, err := a.api.Authenticate(email, password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if err := a.sessions.Save(user, token); err != nil {
		log.Fatalf("Error saving session: %v", err)
	}
	fmt.Printf("Logged in as %s\n", a.bold(user.FullName()))
}

func (a *app) runLogout() {
	if err := a.sessions.Clear(); err != nil {
		log.Fatalf("Error clearing session: %v", err)
	}
	fmt.Println("Logged out")
}

func (a *app) runFeed(args []string) {
	a.requireSession()

	keyword := ""
	if len(args) > 0 {
		keyword = strings.Join(args, " ")
	}

	f := feed.NewFeed(a.api)
	if keyword != "" {
		if err := f.SetKeyword(keyword); err != nil {
			log.Fatalf("Error loading feed: %v", err)
		}
	} else if err := f.Refresh(); err != nil {
		log.Fatalf("Error loading feed: %v", err)
	}

	posts, hasMore := f.Posts()
	if len(posts) == 0 {
		fmt.Println("No posts yet")
		return
	}
	for i := range posts {
		a.printPost(&posts[i])
	}
	if hasMore {
		fmt.Println(a.dim("(more posts available)"))
	}
}

func (a *app) runPost(args []string) {
	a.requireSession()
	if len(args) < 1 {
		log.Fatal("Usage: social-web post <content> [file..]")
	}

	f := feed.NewFeed(a.api)
	err := f.Publish(&models.CreatePostRequest{
		Content:   args[0],
		Scope:     1,
		Type:      1,
		Active:    1,
		FilePaths: args[1:],
	})
	if err != nil {
		log.Fatalf("Error publishing post: %v", err)
	}
	fmt.Println("Posted")
}

// runWatch follows one post live: the comment thread opens, and every
// realtime comment or like lands in the terminal as it happens.
func (a *app) runWatch(args []string) {
	sess := a.requireSession()
	if len(args) < 1 {
		log.Fatal("Usage: social-web watch <post-id>")
	}
	postID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		log.Fatalf("Invalid post ID: %s", args[0])
	}

	post, err := a.api.GetPostDetail(args[0])
	if err != nil {
		log.Fatalf("Error loading post: %v", err)
	}

	channel := realtime.NewChannel(a.wsURL, a.sessions.Token)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go channel.Start(ctx)

	engine := thread.NewEngine(uint(postID), sess.UserID, a.api, channel)
	postLikes := likes.NewPostLikes(post, sess.UserID, channel)

	engine.Attach()
	defer engine.Detach()
	postLikes.Attach()
	defer postLikes.Detach()

	render := func() {
		snap := engine.Snapshot()
		state := postLikes.State()
		fmt.Print("\033[H\033[2J")
		a.printPost(post)
		fmt.Printf("%s likes, %s comments\n\n",
			utils.FormatCount(state.Count), utils.FormatCount(snap.CommentCount))
		for _, c := range snap.TopLevel {
			a.printComment(&c, 0)
			if replies, ok := snap.Replies[c.ID]; ok {
				for _, reply := range replies.Items {
					a.printComment(&reply, 1)
				}
			}
		}
		if snap.HasMore {
			fmt.Println(a.dim("(more comments available)"))
		}
	}

	engine.OnChange(render)
	postLikes.OnChange(render)

	if err := engine.Open(); err != nil {
		log.Printf("Error loading comments: %v", err)
	}
	render()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	fmt.Println("\nStopped watching")
}

// runComment submits through the push-driven strategy: the new comment
// comes back as a broadcast, so keep the channel up briefly to see it
// confirmed.
func (a *app) runComment(args []string) {
	sess := a.requireSession()
	if len(args) < 2 {
		log.Fatal("Usage: social-web comment <post-id> <text>")
	}
	postID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		log.Fatalf("Invalid post ID: %s", args[0])
	}

	channel := realtime.NewChannel(a.wsURL, a.sessions.Token)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go channel.Start(ctx)

	engine := thread.NewEngine(uint(postID), sess.UserID, a.api, channel)
	engine.Attach()
	defer engine.Detach()

	confirmed := make(chan struct{}, 1)
	engine.OnChange(func() {
		select {
		case confirmed <- struct{}{}:
		default:
		}
	})

	// wait for the channel to connect before emitting
	deadline := time.Now().Add(5 * time.Second)
	for {
		err = engine.SubmitComment(strings.Join(args[1:], " "), nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		log.Fatalf("Error submitting comment: %v", err)
	}

	select {
	case <-confirmed:
		fmt.Println("Comment posted")
	case <-time.After(5 * time.Second):
		fmt.Println("Comment sent (no confirmation received)")
	}
}

func (a *app) runProfile() {
	a.requireSession()

	svc := profile.NewService(a.api, a.sessions)
	user, err := svc.Load()
	if err != nil {
		log.Fatalf("Error loading profile: %v", err)
	}
	fmt.Printf("%s <%s>\n", a.bold(user.FullName()), user.Email)
	if user.Latitude != 0 || user.Longitude != 0 {
		fmt.Printf("Location: %.4f, %.4f\n", user.Latitude, user.Longitude)
	}

	if err := svc.RefreshPosts(); err != nil {
		log.Fatalf("Error loading posts: %v", err)
	}
	posts, _ := svc.Posts()
	fmt.Printf("\n%d recent posts:\n", len(posts))
	for i := range posts {
		a.printPost(&posts[i])
	}
}

func (a *app) runLocation(args []string) {
	a.requireSession()
	if len(args) < 2 {
		log.Fatal("Usage: social-web location <lat> <long>")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		log.Fatalf("Invalid latitude: %s", args[0])
	}
	long, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		log.Fatalf("Invalid longitude: %s", args[1])
	}

	svc := profile.NewService(a.api, a.sessions)
	if err := svc.SetLocation(lat, long); err != nil {
		log.Fatalf("Error updating location: %v", err)
	}
	fmt.Println("Location updated")
}

func (a *app) runProvinces() {
	svc := profile.NewService(a.api, a.sessions)
	provinces, err := svc.Provinces()
	if err != nil {
		log.Fatalf("Error loading provinces: %v", err)
	}
	for _, p := range provinces {
		fmt.Printf("%3d  %s\n", p.ID, p.Name)
	}
}

func (a *app) runWards(args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: social-web wards <province-id>")
	}
	provinceID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		log.Fatalf("Invalid province ID: %s", args[0])
	}

	svc := profile.NewService(a.api, a.sessions)
	wards, err := svc.Wards(uint(provinceID))
	if err != nil {
		log.Fatalf("Error loading wards: %v", err)
	}
	for _, w := range wards {
		fmt.Printf("%3d  %s\n", w.ID, w.Name)
	}
}

func (a *app) printPost(post *models.Post) {
	author := "Unknown"
	if post.User != nil {
		author = post.User.FullName()
	}
	when := utils.TimeAgo(utils.ParseCreatedAt(post.CreatedAt), time.Now())
	fmt.Printf("[%d] %s %s\n", post.ID, a.bold(author), a.dim(when))
	if post.Content != "" {
		fmt.Printf("    %s\n", post.Content)
	}
	for _, f := range post.Files {
		fmt.Printf("    %s\n", a.dim(f.URL))
	}
	liked := ""
	if post.UserLiked {
		liked = " (liked)"
	}
	fmt.Printf("    %s likes%s, %s shares\n\n",
		utils.FormatCount(post.Like), liked, utils.FormatCount(post.Share))
}

func (a *app) printComment(c *thread.CommentView, depth int) {
	indent := strings.Repeat("    ", depth+1)
	when := utils.TimeAgo(utils.ParseCreatedAt(c.CreatedAt), time.Now())
	liked := ""
	if c.Liked {
		liked = " ♥"
	}
	fmt.Printf("%s%s %s: %s %s\n", indent,
		a.bold(c.User.FirstName+" "+c.User.LastName), a.dim(when),
		c.Content, a.dim(utils.FormatCount(c.LikeCount)+liked))
	if c.RepliesCount > 0 && depth == 0 {
		fmt.Printf("%s%s\n", indent, a.dim(fmt.Sprintf("(%d replies)", c.RepliesCount)))
	}
}

func (a *app) bold(s string) string {
	if !a.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (a *app) dim(s string) string {
	if !a.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
