package browser

// Page scripts are evaluated with rod's Page.Eval, so each is a function
// expression receiving the Go arguments. Actions that leave the page are
// deferred so the spoken reply starts first.

const collectJS = `
	const senseaiCollect = (name) => {
		if (name === 'headings') {
			return Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6'));
		}
		if (name === 'links') {
			return Array.from(document.querySelectorAll('a[href]')).filter((a) => {
				const r = a.getBoundingClientRect();
				return r.width > 0 && r.height > 0 && a.textContent.trim();
			});
		}
		return Array.from(document.querySelectorAll("a, button, [role='button'], [role='link'], input[type='submit'], input[type='button']"));
	};
	const senseaiLabel = (el) =>
		(el.textContent || el.value || el.getAttribute('aria-label') || '').trim().replace(/\s+/g, ' ');
`

const scrollJS = `(target) => {
	const step = window.innerHeight * 0.75;
	switch (target) {
	case 'down': window.scrollBy({ top: step, behavior: 'smooth' }); break;
	case 'up': window.scrollBy({ top: -step, behavior: 'smooth' }); break;
	case 'top': window.scrollTo({ top: 0, behavior: 'smooth' }); break;
	case 'bottom': window.scrollTo({ top: document.body.scrollHeight, behavior: 'smooth' }); break;
	}
}`

const historyJS = `(delta) => { setTimeout(() => window.history.go(delta), 500); }`

const reloadJS = `() => { setTimeout(() => window.location.reload(), 500); }`

const navigateJS = `(url) => { setTimeout(() => { window.location.href = url; }, 500); }`

const infoJS = `() => ({
	title: document.title || '',
	host: window.location.hostname || '',
	url: window.location.href
})`

const mainTextJS = `(limit) => {
	const root =
		document.querySelector('main') ||
		document.querySelector('article') ||
		document.querySelector('[role="main"]') ||
		document.querySelector('#content') ||
		document.querySelector('.content') ||
		document.body;
	if (!root) return '';
	const skip = new Set(['NAV', 'HEADER', 'FOOTER', 'ASIDE', 'SCRIPT', 'STYLE', 'NOSCRIPT', 'SVG']);
	const walker = document.createTreeWalker(root, NodeFilter.SHOW_TEXT, {
		acceptNode(node) {
			const parent = node.parentElement;
			if (!parent || skip.has(parent.tagName)) return NodeFilter.FILTER_REJECT;
			if (parent.closest('nav, header, footer, aside, script, style')) return NodeFilter.FILTER_REJECT;
			return node.textContent.trim() ? NodeFilter.FILTER_ACCEPT : NodeFilter.FILTER_REJECT;
		},
	});
	let text = '';
	let node;
	while ((node = walker.nextNode())) {
		text += node.textContent.trim() + ' ';
		if (text.length > limit) break;
	}
	return text.replace(/\s+/g, ' ').trim();
}`

const selectionJS = `() => {
	const selection = window.getSelection();
	return selection ? selection.toString().trim() : '';
}`

const headingsJS = `() => {` + collectJS + `
	return senseaiCollect('headings').map((h) => ({
		level: Number(h.tagName.substring(1)),
		text: h.textContent.trim().replace(/\s+/g, ' '),
	}));
}`

const elementsJS = `(name) => {` + collectJS + `
	return senseaiCollect(name).map((el) => ({ text: senseaiLabel(el) }));
}`

const linkCountJS = `() => document.querySelectorAll('a[href]').length`

const focusJS = `(name, index) => {` + collectJS + `
	const el = senseaiCollect(name)[index];
	if (!el) return false;
	el.scrollIntoView({ behavior: 'smooth', block: 'center' });
	if (name === 'headings' && !el.hasAttribute('tabindex')) el.setAttribute('tabindex', '-1');
	el.focus({ preventScroll: true });
	if (name === 'links') {
		el.style.outline = '3px solid #00ff88';
		el.style.outlineOffset = '2px';
		setTimeout(() => {
			el.style.outline = '';
			el.style.outlineOffset = '';
		}, 3000);
	}
	return true;
}`

const clickJS = `(name, index) => {` + collectJS + `
	const el = senseaiCollect(name)[index];
	if (!el) return false;
	el.scrollIntoView({ behavior: 'smooth', block: 'center' });
	setTimeout(() => el.click(), 500);
	return true;
}`

const searchJS = `(query) => {
	const input =
		document.querySelector('input#search') ||
		document.querySelector("input[name='search_query']") ||
		document.querySelector("input[placeholder*='Search']");
	if (!input) return false;
	input.value = query;
	input.dispatchEvent(new Event('input', { bubbles: true }));
	input.focus();
	setTimeout(() => {
		const form = input.closest('form');
		if (form) {
			form.submit();
		} else {
			input.dispatchEvent(new KeyboardEvent('keydown', { key: 'Enter', keyCode: 13, bubbles: true }));
		}
	}, 500);
	return true;
}`

const firstVideoJS = `() => {
	const card = document.querySelector('ytd-video-renderer') || document.querySelector('ytd-rich-item-renderer');
	if (!card) return { found: false };
	const title = card.querySelector('#video-title');
	const views = card.querySelector('#metadata-line span') || card.querySelector('.style-scope.ytd-video-meta-block');
	return {
		found: true,
		title: title ? title.textContent.trim() : '',
		views: views ? views.textContent.trim() : '',
	};
}`

const openFirstVideoJS = `() => {
	const link =
		document.querySelector('ytd-video-renderer a#video-title') ||
		document.querySelector('ytd-rich-item-renderer a#video-title') ||
		document.querySelector('a#video-title');
	if (!link) return false;
	setTimeout(() => link.click(), 500);
	return true;
}`

const videoTitlesJS = `(limit) => {
	const cards = Array.from(document.querySelectorAll('ytd-video-renderer, ytd-rich-item-renderer'));
	const titles = [];
	for (const card of cards.slice(0, limit)) {
		const title = card.querySelector('#video-title');
		const text = title ? title.textContent.trim() : '';
		if (text) titles.push(text);
	}
	return { titles, total: cards.length };
}`

const watchInfoJS = `() => {
	const title = document.querySelector('h1.ytd-video-primary-info-renderer, h1.title, #title h1, h1.style-scope.ytd-watch-metadata');
	const channel = document.querySelector('#channel-name a, .ytd-channel-name a, #owner-name a');
	const video = document.querySelector('video');
	const duration = video && isFinite(video.duration) ? video.duration : 0;
	return {
		title: title ? title.textContent.trim() : '',
		channel: channel ? channel.textContent.trim() : '',
		duration: duration,
		position: video && duration ? video.currentTime : 0,
	};
}`

const mediaJS = `async (kind, seconds, delta) => {
	const video = document.querySelector('video');
	const media = video || document.querySelector('audio');
	const state = (extra) => Object.assign({
		present: !!media,
		video: !!video,
		paused: media ? media.paused : false,
		muted: media ? media.muted : false,
		volume: media ? media.volume : 0,
		duration: media && isFinite(media.duration) ? media.duration : 0,
		position: media ? media.currentTime : 0,
		fullscreen: !!document.fullscreenElement,
		denied: false,
	}, extra || {});
	const button = (label) =>
		document.querySelector("button[aria-label*='" + label + "']") || document.querySelector('.ytp-play-button');

	switch (kind) {
	case 'play':
		if (video) {
			video.play().catch(() => {});
			return state();
		}
		if (button('Play')) {
			button('Play').click();
			return state({ present: true });
		}
		return state();
	case 'pause':
		if (video) {
			video.pause();
			return state();
		}
		if (button('Pause')) {
			button('Pause').click();
			return state({ present: true });
		}
		return state();
	case 'skip':
		if (video) video.currentTime = Math.max(0, video.currentTime + seconds);
		return state();
	case 'volume':
		if (media) media.volume = Math.min(1, Math.max(0, media.volume + delta));
		return state();
	case 'mute':
		if (media) media.muted = !media.muted;
		return state();
	case 'fullscreen':
		if (!video) return state();
		if (document.fullscreenElement) {
			try { await document.exitFullscreen(); } catch (e) {}
			return state({ fullscreen: false });
		}
		try {
			await video.requestFullscreen();
			return state({ fullscreen: true });
		} catch (e) {
			return state({ denied: true });
		}
	}
	return state();
}`

const zoomJS = `(delta, reset, min, max) => {
	const current = parseFloat(document.body.style.zoom || '1') || 1;
	const next = reset ? 1 : Math.min(max, Math.max(min, Math.round((current + delta) * 10) / 10));
	document.body.style.zoom = String(next);
	return next;
}`

const speakJS = `(text, id, binding, rate, lang) => {
	const done = () => {
		const notify = window[binding];
		if (typeof notify === 'function') notify(id);
	};
	speechSynthesis.cancel();
	const utterance = new SpeechSynthesisUtterance(text);
	utterance.lang = lang;
	utterance.rate = rate;
	utterance.pitch = 1.0;
	utterance.volume = 1.0;
	utterance.onend = done;
	utterance.onerror = done;
	speechSynthesis.speak(utterance);
}`

const cancelSpeechJS = `() => { speechSynthesis.cancel(); }`

const overlayJS = `(label, icon) => {
	if (!document.body) return false;
	let bar = document.getElementById('senseai-status-bar');
	if (!bar) {
		bar = document.createElement('div');
		bar.id = 'senseai-status-bar';
		bar.setAttribute('role', 'status');
		bar.setAttribute('aria-live', 'polite');
		bar.setAttribute('aria-label', 'SenseAI Voice Assistant status');
		bar.style.cssText = [
			'position: fixed', 'bottom: 20px', 'left: 20px', 'z-index: 2147483647',
			'padding: 12px 16px', 'background: linear-gradient(135deg, #1a1a1a 0%, #2d2d2d 100%)',
			'color: #00ff88', 'border-radius: 12px', "font-family: 'Segoe UI', Arial, sans-serif",
			'font-size: 14px', 'font-weight: 500', 'box-shadow: 0 8px 32px rgba(0, 255, 136, 0.3)',
			'border: 1px solid rgba(0, 255, 136, 0.2)', 'min-width: 220px', 'max-width: 400px',
			'display: flex', 'align-items: center', 'gap: 8px',
		].join(';');
		const iconEl = document.createElement('div');
		iconEl.id = 'senseai-icon';
		iconEl.setAttribute('aria-hidden', 'true');
		iconEl.style.fontSize = '16px';
		const textEl = document.createElement('div');
		textEl.id = 'senseai-text';
		bar.append(iconEl, textEl);
		document.body.appendChild(bar);
	}
	if (icon) bar.querySelector('#senseai-icon').textContent = icon;
	bar.querySelector('#senseai-text').textContent = label;
	return true;
}`

// signalListenersJS runs on every new document and forwards visibility
// changes and the Ctrl+Shift+S shortcut to the Go side.
const signalListenersJS = `(binding) => {
	if (window.__senseaiListeners) return;
	window.__senseaiListeners = true;
	const send = (signal) => {
		const notify = window[binding];
		if (typeof notify === 'function') notify(signal);
	};
	document.addEventListener('visibilitychange', () => send(document.hidden ? 'hidden' : 'visible'));
	document.addEventListener('keydown', (e) => {
		if (e.ctrlKey && e.shiftKey && (e.key === 'S' || e.key === 's')) {
			e.preventDefault();
			send('toggle');
		}
	}, true);
}`

const readyStateJS = `() => document.readyState`
