package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/sususave/internal/auth"
	"github.com/mmynk/sususave/internal/models"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a member",
	Args:  cobra.NoArgs,
	RunE:  runMemberAdd,
}

var memberVerifyCmd = &cobra.Command{
	Use:   "verify [member-id]",
	Short: "Mark a member's identity verification as passed",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberVerify,
}

var memberTokenCmd = &cobra.Command{
	Use:   "token [member-id]",
	Short: "Issue a bearer token for a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberToken,
}

func init() {
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberVerifyCmd)
	memberCmd.AddCommand(memberTokenCmd)

	memberAddCmd.Flags().String("name", "", "display name")
	memberAddCmd.Flags().String("phone", "", "mobile money number, e.g. +233201234567")
	memberAddCmd.Flags().Bool("kyc", false, "mark the member as already verified")
	_ = memberAddCmd.MarkFlagRequired("name")
	_ = memberAddCmd.MarkFlagRequired("phone")

	memberVerifyCmd.Flags().Bool("revoke", false, "clear the verification instead")
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	phone, _ := cmd.Flags().GetString("phone")
	verified, _ := cmd.Flags().GetBool("kyc")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	member := &models.Member{Name: name, Phone: phone, KYCVerified: verified}
	if err := a.store.CreateMember(cmd.Context(), member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Member %s added (%s)\n", member.ID, member.Phone)
	return nil
}

func runMemberVerify(cmd *cobra.Command, args []string) error {
	revoke, _ := cmd.Flags().GetBool("revoke")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetKYCVerified(cmd.Context(), args[0], !revoke); err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	state := "verified"
	if revoke {
		state = "unverified"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Member %s is now %s\n", args[0], state)
	return nil
}

func runMemberToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAuth(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	member, err := a.store.GetMember(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(member)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
