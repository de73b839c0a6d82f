package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/binhbb2204/litverse/internal/realtime"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	clubDescription string
	clubPrivate     bool
	clubPage        int
)

var clubCmd = &cobra.Command{
	Use:   "club",
	Short: "Book clubs",
	Long:  `List, create and join book clubs, and chat with members in real time.`,
}

var clubListCmd = &cobra.Command{
	Use:   "list",
	Short: "List book clubs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Clubs []models.BookClub `json:"bookClubs"`
			Total int               `json:"total"`
		}
		if err := client.do(http.MethodGet, "/api/social/book-clubs?page="+strconv.Itoa(clubPage), nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		if len(res.Clubs) == 0 {
			fmt.Println("No book clubs yet. Start one: litverse club create \"Name\" --description \"...\"")
			return nil
		}
		fmt.Printf("%d club(s):\n\n", res.Total)
		for _, c := range res.Clubs {
			visibility := "public"
			if !c.IsPublic {
				visibility = "private"
			}
			fmt.Printf("%s  (%s, %s member(s))\n", c.Name, visibility, humanize.Comma(int64(c.MemberCount)))
			fmt.Printf("   ID: %s\n", c.ID)
			if c.Description != "" {
				fmt.Printf("   %s\n", c.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var clubCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Start a book club",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		public := !clubPrivate
		var res struct {
			Club models.BookClub `json:"bookClub"`
		}
		req := models.CreateClubRequest{Name: args[0], Description: clubDescription, IsPublic: &public}
		if err := client.do(http.MethodPost, "/api/social/book-clubs", req, &res); err != nil {
			printError("Could not create club: " + err.Error())
			return err
		}
		printSuccess("Created " + res.Club.Name)
		fmt.Printf("ID: %s\n", res.Club.ID)
		fmt.Printf("Chat: litverse club chat %s\n", res.Club.ID)
		return nil
	},
}

var clubJoinCmd = &cobra.Command{
	Use:   "join [club-id]",
	Short: "Join a book club",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Message      string          `json:"message"`
			Club         models.BookClub `json:"bookClub"`
			PointsEarned int             `json:"pointsEarned"`
		}
		if err := client.do(http.MethodPost, "/api/social/book-clubs/"+url.PathEscape(args[0])+"/join", nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		printSuccess(res.Message)
		fmt.Printf("+%d social points\n", res.PointsEarned)
		return nil
	},
}

var clubChatCmd = &cobra.Command{
	Use:   "chat [club-id]",
	Short: "Chat with a club in real time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clubID := args[0]
		conn, username, err := dialRealtime()
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := sendFrame(conn, realtime.EventJoinBookClub, map[string]string{"clubId": clubID}); err != nil {
			return err
		}
		fmt.Printf("Joined club %s. Type a message and press enter, /quit to leave.\n", clubID)

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		done := make(chan struct{})
		inputChan := make(chan string)

		go func() {
			defer close(done)
			for {
				var f realtime.ServerFrame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				printFrame(f, username)
			}
		}()

		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				inputChan <- scanner.Text()
			}
		}()

		for {
			select {
			case <-done:
				printError("Connection closed by server")
				return nil
			case <-interrupt:
				return leaveClub(conn, clubID, done)
			case input := <-inputChan:
				input = strings.TrimSpace(input)
				switch {
				case input == "":
				case input == "/quit":
					return leaveClub(conn, clubID, done)
				default:
					err := sendFrame(conn, realtime.EventBookClubMessage, map[string]string{"clubId": clubID, "message": input})
					if err != nil {
						printError("Failed to send message: " + err.Error())
					}
				}
			}
		}
	},
}

func leaveClub(conn *websocket.Conn, clubID string, done <-chan struct{}) error {
	_ = sendFrame(conn, realtime.EventLeaveBookClub, map[string]string{"clubId": clubID})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	printSuccess("Left the club chat")
	return nil
}

func dialRealtime() (*websocket.Conn, string, error) {
	cfg, err := config.Load()
	if err != nil || cfg.User.Token == "" {
		printError("Not authenticated. Run 'litverse auth login' first")
		return nil, "", fmt.Errorf("authentication required")
	}
	base, err := config.GetServerURL()
	if err != nil {
		return nil, "", err
	}
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws?token=" + url.QueryEscape(cfg.User.Token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect: %v", err))
		return nil, "", err
	}
	return conn, cfg.User.Username, nil
}

func sendFrame(conn *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(realtime.ClientFrame{Event: event, Data: raw})
}

func printFrame(f realtime.ServerFrame, self string) {
	data, _ := f.Data.(map[string]interface{})
	stamp := f.Timestamp.Local().Format("15:04")
	switch f.Event {
	case realtime.EventNewBookClubMessage:
		who, _ := data["username"].(string)
		if who == self {
			who = "you"
		}
		fmt.Printf("[%s] %s: %v\n", stamp, who, data["message"])
	case realtime.EventUserTyping:
		if typing, _ := data["isTyping"].(bool); typing {
			fmt.Printf("[%s] %v is typing...\n", stamp, data["username"])
		}
	case realtime.EventNewAchievement:
		fmt.Printf("[%s] 🏆 New achievement unlocked!\n", stamp)
	case realtime.EventError:
		fmt.Printf("[%s] ✗ %v\n", stamp, data["message"])
	}
}

func init() {
	clubListCmd.Flags().IntVar(&clubPage, "page", 1, "Result page")
	clubCreateCmd.Flags().StringVar(&clubDescription, "description", "", "What the club reads")
	clubCreateCmd.Flags().BoolVar(&clubPrivate, "private", false, "Only members can see the club")
	clubCreateCmd.MarkFlagRequired("description")

	clubCmd.AddCommand(clubListCmd)
	clubCmd.AddCommand(clubCreateCmd)
	clubCmd.AddCommand(clubJoinCmd)
	clubCmd.AddCommand(clubChatCmd)
}
