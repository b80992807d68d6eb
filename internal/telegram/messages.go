package telegram

// Replies are MarkdownV2 and double as gettext message ids; literal
// punctuation is escaped here, dynamic values are escaped by the caller.
const (
	msgWelcome = `🚀 *Crypto Monitor Bot online\!*

*📋 Commands*
• /addcoin \- monitor a DexTools pair
• /listcoins \- your monitored pairs
• /removecoin \<id\> \- stop monitoring a pair
• /status \- system status
• /help \- manual

Send /addcoin and paste a DexTools link to begin\.`

	msgHelp = `📖 *Manual*

*1️⃣ Add a pair*
• Send /addcoin
• Paste the DexTools link, e\.g\. https://www\.dextools\.io/app/en/bnb/pair\-explorer/0x\.\.\.
• Send the threshold: \+15 alerts on a 15%% rise, \-10 on a 10%% fall

*2️⃣ Manage*
• /listcoins \- all your pairs
• /removecoin \<id\> \- stop monitoring
• /cancel \- abort /addcoin
• /status \- statistics

Prices are checked every %s; a pair alerts at most once every %s\.`

	msgSendLink          = `🔗 Send the DexTools pair link \(https://www\.dextools\.io/app/en/<chain\>/pair\-explorer/<address\>\)\.`
	msgCancelled         = `❎ Cancelled\.`
	msgUnknownCommand    = `Unknown command\. Send /help for the list of commands\.`
	msgInvalidLink       = `❌ That is not a DexTools pair\-explorer link\. Try again or send /cancel\.`
	msgFetchFailed       = `❌ Could not load that pair from DexTools right now\. Please try /addcoin again later\.`
	msgPairFound         = "✅ Found *%s* on %s\nPrice: *$%s* \\| 24h: *%s*\n\nNow send the alert threshold in percent, e\\.g\\. \\+15 or \\-10\\."
	msgInvalidThreshold  = `❌ Invalid threshold\. Send a non\-zero percentage between \-1000 and \+1000, e\.g\. \+15 or \-10\.`
	msgAlreadyMonitored  = `⚠️ You are already monitoring *%s*\.`
	msgInsertFailed      = `❌ Failed to save the pair\. Please try again later\.`
	msgTargetAdded       = "🎯 Monitoring *%s* \\(id %d\\)\\.\nYou will be alerted when the 24h change %s *%s*\\.\nChecked every %s\\."
	msgRises             = `reaches`
	msgFalls             = `drops to`
	msgListFailed        = `❌ Failed to load your pairs\.`
	msgNoTargets         = `You are not monitoring any pair yet\. Send /addcoin to start\.`
	msgTargetsHeader     = "*📊 Your monitored pairs*\n\n"
	msgTargetItem        = "*%d\\.* *%s* \\(%s\\)\n    target %s \\| price $%s \\| 24h %s \\| added %s\n"
	msgRemoveUsage       = `Usage: /removecoin \<id\> \(see /listcoins\)`
	msgTargetNotFound    = `❌ No active pair with that id\.`
	msgUpdateFailed      = `❌ Failed to update the pair\. Please try again later\.`
	msgTargetRemoved     = `🗑 Pair %d is no longer monitored\.`
	msgStatusFailed      = `❌ Failed to read the system status\.`
	msgStatus            = "*📈 Status*\n\nActive pairs: *%s*\nSubscribers: *%s*\nAlerts sent to you: *%s*\nCheck interval: *%s*"
)
