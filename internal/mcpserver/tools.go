package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the LessonPay MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetRequest = mcp.NewTool("get_request",
	mcp.WithDescription(
		"Look up a lesson request by ID. "+
			"Shows title, budget, current status (draft, accepted, escrow_pending, escrowed, completed, canceled), "+
			"and the student and tutor involved."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The request ID (e.g. 'req_1234...')")),
)

var ToolListRequests = mcp.NewTool("list_requests",
	mcp.WithDescription(
		"List your lesson requests, newest first. "+
			"Includes requests you posted as a student and requests you accepted as a tutor."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of requests to return (default 20)")),
)

var ToolCreateRequest = mcp.NewTool("create_request",
	mcp.WithDescription(
		"Post a new lesson request as a student. "+
			"The request starts in draft status; a tutor must accept it before payment can be set up."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Short title for the lesson (e.g. 'Weekly calculus tutoring')")),
	mcp.WithString("description",
		mcp.Description("What you need, schedule, level, and any other details")),
	mcp.WithNumber("budget_amount",
		mcp.Required(),
		mcp.Description("Budget in yen (e.g. 12000)")),
)

var ToolAcceptRequest = mcp.NewTool("accept_request",
	mcp.WithDescription(
		"Accept a lesson request as the tutor. "+
			"Only draft requests can be accepted, and you cannot accept your own request. "+
			"Make sure your payout account is set up first or the student will not be able to pay."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The request ID to accept")),
)

var ToolInitiateEscrow = mcp.NewTool("initiate_escrow",
	mcp.WithDescription(
		"Start payment for an accepted lesson request. "+
			"Returns a checkout URL where the student authorizes the payment; "+
			"the money is held in escrow and is not released to the tutor until the lesson is confirmed complete. "+
			"Only the student who posted the request can do this."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The request ID to pay for")),
)

var ToolCaptureEscrow = mcp.NewTool("capture_escrow",
	mcp.WithDescription(
		"Release escrowed funds to the tutor after the lesson is done. "+
			"Only works once the payment is held (escrowed status) and only the student can do it. "+
			"This is final: captured funds cannot be returned through the platform."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The request ID to complete")),
)

var ToolCancelEscrow = mcp.NewTool("cancel_escrow",
	mcp.WithDescription(
		"Cancel a lesson request and void any payment hold. "+
			"Funds held in escrow are returned to the student. "+
			"Either the student or the tutor can cancel before funds are captured."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The request ID to cancel")),
)

var ToolGetProfile = mcp.NewTool("get_profile",
	mcp.WithDescription(
		"Look up a user's public profile: display name, bio, and whether they can receive payouts."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user ID (e.g. 'user_1234...')")),
)
