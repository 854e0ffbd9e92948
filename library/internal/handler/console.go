package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
)

// Credentials decide who may open a desk session. Any user name with MemberPassword
// gets a member session; only AdminUser with AdminPassword gets an admin one.
type Credentials struct {
	AdminUser      string
	AdminPassword  string
	MemberPassword string
}

const (
	menuAddBook = iota + 1
	menuViewBooks
	menuSearch
	menuIssue
	menuReturn
	menuRate
	menuHistory
	menuExit = 0
)

// Console is the interactive desk: one login, then a menu loop until Exit or end of input.
type Console struct {
	librarySvc LibraryService
	creds      Credentials
	log        *zap.Logger
	in         io.Reader
	out        *bufio.Writer
	lines      <-chan string
}

func NewConsole(librarySvc LibraryService, creds Credentials, in io.Reader, out io.Writer, log *zap.Logger) *Console {
	return &Console{
		librarySvc: librarySvc,
		creds:      creds,
		log:        log.Named("console"),
		in:         in,
		out:        bufio.NewWriter(out),
	}
}

// Run returns nil when the user exits, input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.out.Flush()
	c.lines = scanLines(ctx, c.in)

	sess, err := c.login(ctx)
	if err != nil {
		return ended(err)
	}
	c.log.Info("session opened",
		zap.String("session", sess.ID.String()), zap.String("user", sess.User), zap.Bool("admin", sess.IsAdmin))
	defer c.log.Info("session closed", zap.String("session", sess.ID.String()))

	for {
		c.menu(sess)
		choice, ok, err := c.readInt(ctx)
		if err != nil {
			return ended(err)
		}
		if !ok {
			continue
		}
		switch choice {
		case menuExit:
			c.println("Exiting...")
			return nil
		case menuAddBook:
			err = c.addBook(ctx, sess)
		case menuViewBooks:
			c.viewBooks(ctx)
		case menuSearch:
			err = c.search(ctx)
		case menuIssue:
			err = c.issue(ctx, sess)
		case menuReturn:
			err = c.returnBook(ctx, sess)
		case menuRate:
			err = c.rate(ctx, sess)
		case menuHistory:
			c.history(ctx, sess)
		default:
			c.println("Invalid option.")
		}
		if err != nil {
			return ended(err)
		}
	}
}

func (c *Console) login(ctx context.Context) (model.Session, error) {
	c.print("Login\nEnter username: ")
	user, err := c.readLine(ctx)
	if err != nil {
		return model.Session{}, err
	}
	c.print("Enter password: ")
	pwd, err := c.readLine(ctx)
	if err != nil {
		return model.Session{}, err
	}

	user = strings.TrimSpace(user)
	switch {
	case user == "":
	case user == c.creds.AdminUser && pwd == c.creds.AdminPassword:
		return model.NewSession(user, true), nil
	case c.creds.MemberPassword != "" && pwd == c.creds.MemberPassword:
		return model.NewSession(user, false), nil
	}
	c.println("Invalid credentials.")
	c.log.Warn("login rejected", zap.String("user", user))
	return model.Session{}, errors.Wrap(errs.ErrNotPermitted, "invalid credentials")
}

func (c *Console) menu(sess model.Session) {
	c.print("\n===== Library Menu =====\n")
	if sess.IsAdmin {
		c.print("1. Add Book\n")
	}
	c.print("2. View Books\n3. Search Book by Title (Fuzzy)\n" +
		"4. Issue Book\n5. Return Book\n6. Rate a Book\n7. My History\n0. Exit\nChoose an option: ")
}

func (c *Console) addBook(ctx context.Context, sess model.Session) error {
	if !sess.IsAdmin {
		c.println("Only the admin can add books.")
		return nil
	}
	var req model.AddBookRequest
	c.print("Enter Book ID: ")
	id, ok, err := c.readInt(ctx)
	if err != nil || !ok {
		return err
	}
	req.ID = id
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Enter Title: ", &req.Title},
		{"Enter Author: ", &req.Author},
		{"Enter Genre: ", &req.Genre},
	} {
		c.print(f.prompt)
		if *f.dst, err = c.readLine(ctx); err != nil {
			return err
		}
	}

	if _, err := c.librarySvc.AddBook(ctx, sess, req); err != nil {
		c.fail(err)
		return nil
	}
	c.println("Book added successfully!")
	return nil
}

func (c *Console) viewBooks(ctx context.Context) {
	books := c.librarySvc.ListBooks(ctx)
	if len(books) == 0 {
		c.println("No books in the catalog.")
		return
	}
	c.print("\n--- Book List ---\n")
	c.printBooks(books)
}

func (c *Console) search(ctx context.Context) error {
	c.print("Enter book title (approx): ")
	q, err := c.readLine(ctx)
	if err != nil {
		return err
	}
	books := c.librarySvc.Search(ctx, q)
	if len(books) == 0 {
		c.println("No similar titles found.")
		return nil
	}
	c.print("\n--- Matching Books ---\n")
	c.printBooks(books)
	return nil
}

func (c *Console) issue(ctx context.Context, sess model.Session) error {
	c.print("Enter Book ID to issue: ")
	id, ok, err := c.readInt(ctx)
	if err != nil || !ok {
		return err
	}
	res, err := c.librarySvc.Issue(ctx, sess, id)
	switch {
	case err != nil:
		c.fail(err)
	case res.Outcome == model.OutcomeQueued:
		c.printf("Book is already issued. Added to waitlist at position %d.\n", res.Position)
	default:
		c.println("Book issued successfully.")
	}
	return nil
}

func (c *Console) returnBook(ctx context.Context, sess model.Session) error {
	c.print("Enter Book ID to return: ")
	id, ok, err := c.readInt(ctx)
	if err != nil || !ok {
		return err
	}
	res, err := c.librarySvc.Return(ctx, sess, id)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.println("Book not found or not issued.")
		return nil
	case errors.Is(err, errs.ErrNotPermitted):
		c.println("This book is issued to another user.")
		return nil
	case err != nil:
		c.fail(err)
		return nil
	}
	c.printf("Fine (if any): %.2f\n", res.Fine)
	if res.HasNextInLine() {
		c.printf("Notifying next user in waitlist: %s\n", res.NextInLine)
	}
	c.println("Book returned successfully.")
	return nil
}

func (c *Console) rate(ctx context.Context, sess model.Session) error {
	c.print("Enter Book Title to rate: ")
	title, err := c.readLine(ctx)
	if err != nil {
		return err
	}
	book, err := c.librarySvc.FindByTitle(ctx, title)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.printf("Enter rating (%d-%d): ", model.MinRating, model.MaxRating)
	rating, ok, err := c.readInt(ctx)
	if err != nil || !ok {
		return err
	}
	c.print("Enter comment: ")
	comment, err := c.readLine(ctx)
	if err != nil {
		return err
	}

	req := model.CreateReview{BookID: book.ID, Rating: rating, Comment: comment}
	if _, err := c.librarySvc.AddReview(ctx, sess, req); err != nil {
		c.fail(err)
		return nil
	}
	c.println("Review added.")
	return nil
}

func (c *Console) history(ctx context.Context, sess model.Session) {
	books := c.librarySvc.History(ctx, sess)
	if len(books) == 0 {
		c.println("You have not borrowed any books yet.")
		return
	}
	c.print("\n--- My History ---\n")
	for i, b := range books {
		c.printf("%d. %s (ID: %d)\n", i+1, b.Title, b.ID)
	}
}

func (c *Console) printBooks(books []model.Book) {
	for _, b := range books {
		c.printf("ID: %d, Title: %s, Author: %s, Genre: %s", b.ID, b.Title, b.Author, b.Genre)
		if b.Loan != nil {
			c.printf(", Issued to: %s, Issued: Yes\n", b.Loan.Holder)
		} else {
			c.print(", Issued: No\n")
		}
		if avg, ok := b.AverageRating(); ok {
			c.printf("Average Rating: %.2f\n", avg)
		}
	}
}

func (c *Console) fail(err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.println("Book not found.")
	case errors.Is(err, errs.ErrNotPermitted):
		c.println("Operation not permitted.")
	case errors.Is(err, errs.ErrInvalidInput):
		c.printf("Invalid input: %s\n", strings.TrimSuffix(err.Error(), ": "+errs.ErrInvalidInput.Error()))
	default:
		c.log.Error("desk operation", zap.Error(err))
		c.println("Operation failed, nothing was changed. Please try again.")
	}
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	// prompts must be visible before blocking on input
	if err := c.out.Flush(); err != nil {
		return "", err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// readInt reports ok=false after telling the user the input was not a number.
func (c *Console) readInt(ctx context.Context) (int, bool, error) {
	line, err := c.readLine(ctx)
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		c.println("Please enter a number.")
		return 0, false, nil
	}
	return v, true, nil
}

func (c *Console) print(s string) {
	_, _ = c.out.WriteString(s)
}

func (c *Console) println(s string) {
	_, _ = c.out.WriteString(s + "\n")
}

func (c *Console) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSuffix(sc.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func ended(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, errs.ErrNotPermitted) {
		return nil
	}
	return err
}
