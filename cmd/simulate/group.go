package main

import (
	"fmt"
	"time"

	"trawell-be/internal/dto"
	"trawell-be/internal/pkg/serverutils"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/moderation"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	secondEnvironment string
	pollFor           time.Duration
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Open a room for two travelers and chat",
	Long: `Create a room as Alice, join it as Bob and exchange a round of
messages so the moderator speaks up. Both travelers are anonymous and
bring inline profile snapshots, so no profiling is needed first.`,
	RunE: runGroup,
}

func init() {
	groupCmd.Flags().StringVar(&secondEnvironment, "bob-environment", "mountains", "Bob's preferred environment (beach gives a high match)")
	groupCmd.Flags().DurationVar(&pollFor, "wait", 30*time.Second, "how long to wait for the AI reply")
}

func snapshot(environment, activity string) *dto.ProfileSnapshot {
	return &dto.ProfileSnapshot{
		Preferences: map[string]string{
			"traveler_type":       "relaxer",
			"activity_level":      activity,
			"accommodation_style": "all_inclusive",
			"environment":         environment,
			"budget_sensitivity":  "medium",
		},
	}
}

func runGroup(cmd *cobra.Command, args []string) error {
	alice := newAPIClient("")
	bob := newAPIClient("")

	color.Cyan("🚀 Starting group simulation against %s\n", baseURL)

	var created serverutils.BaseResponse[dto.RoomResponse]
	if err := alice.do("POST", "/brainstorm/group/create", dto.CreateRoomRequest{
		DisplayName: "Alice",
		Profile:     snapshot("beach", "low"),
	}, &created); err != nil {
		return err
	}
	code := created.Data.RoomCode
	color.Green("Room %s created by Alice", code)

	var joined serverutils.BaseResponse[dto.RoomResponse]
	if err := bob.do("POST", "/brainstorm/group/join", dto.JoinRoomRequest{
		RoomCode:    code,
		DisplayName: "Bob",
		Profile:     snapshot(secondEnvironment, "high"),
	}, &joined); err != nil {
		return err
	}
	color.Green("Bob joined, room is %s", joined.Data.Status)
	printReport(joined.Data.Compatibility)

	script := []struct {
		who  *apiClient
		name string
		body string
	}{
		{alice, "Alice", "I'd love somewhere warm where we can do nothing for a week."},
		{bob, "Bob", "I was hoping for hiking, maybe somewhere with both?"},
	}
	for _, line := range script {
		fmt.Printf("\n%s: %s\n", line.name, line.body)
		if err := line.who.do("POST", "/brainstorm/group/"+code+"/messages", dto.SendGroupMessageRequest{Body: line.body}, nil); err != nil {
			return err
		}
	}

	// The reply is generated in the background; poll the room for it.
	deadline := time.Now().Add(pollFor)
	for time.Now().Before(deadline) {
		var room serverutils.BaseResponse[dto.RoomResponse]
		if err := alice.do("GET", "/brainstorm/group/"+code, nil, &room); err != nil {
			return err
		}
		if !room.Data.Generating && hasAIReply(room.Data.Messages) {
			for _, m := range room.Data.Messages {
				if moderation.MessageKind(m.Kind) != moderation.KindUser {
					color.Magenta("\n[%d] %s: %s", m.Sequence, m.Kind, m.Body)
				}
			}
			return nil
		}
		time.Sleep(time.Second)
	}
	color.Red("No AI reply within %s", pollFor)
	return nil
}

func hasAIReply(messages []*dto.GroupMessageResponse) bool {
	for _, m := range messages {
		if moderation.MessageKind(m.Kind).IsAIResponse() {
			return true
		}
	}
	return false
}

func printReport(r *compatibility.Report) {
	if r == nil {
		return
	}
	levelColor := color.GreenString
	if r.CompromiseNeeded {
		levelColor = color.YellowString
	}
	fmt.Printf("   compatibility %.2f (%s)\n", r.Score, levelColor(string(r.Level)))
	for _, c := range r.Conflicts {
		fmt.Printf("   conflict on %s: %v\n", c.Dimension, c.Values)
	}
	if len(r.CommonGround) > 0 {
		fmt.Printf("   common ground: %v\n", r.CommonGround)
	}
}
